package report

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("13"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

func styled(numeric map[int]bool) func(row, col int) lipgloss.Style {
	return func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case numeric[col]:
			return numberStyle
		default:
			return cellStyle
		}
	}
}

// RenderLeaderboard draws standings as a terminal table.
func RenderLeaderboard(standings []Standing) string {
	rows := make([][]string, len(standings))
	for i, s := range standings {
		rows[i] = []string{
			fmt.Sprintf("%d", s.Rank),
			s.Name,
			string(s.Kind),
			fmt.Sprintf("%.3f", s.Mu),
			fmt.Sprintf("%.3f", s.Sigma),
			fmt.Sprintf("%.3f", s.Conservative),
		}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RANK", "NAME", "KIND", "MU", "SIGMA", "MU-3SIGMA").
		Rows(rows...).
		StyleFunc(styled(map[int]bool{0: true, 3: true, 4: true, 5: true})).
		String()
}

// RenderHistory draws one competitor's head-to-head summary.
func RenderHistory(name string, history []HeadToHead) string {
	rows := make([][]string, len(history))
	for i, h := range history {
		rows[i] = []string{
			h.Opponent,
			fmt.Sprintf("%d", h.Wins),
			fmt.Sprintf("%d", h.Draws),
			fmt.Sprintf("%d", h.Losses),
			fmt.Sprintf("%.3f", h.Score),
			fmt.Sprintf("%+.1f", h.EloDifference),
			fmt.Sprintf("%.1f%%", h.LOS*100),
			fmt.Sprintf("%.1f%%", h.WinChance*100),
			fmt.Sprintf("%.1f%%", h.DrawChance*100),
			fmt.Sprintf("%.3f", h.Quality),
		}
	}
	title := headerStyle.Render(name)
	return title + "\n" + table.New().
		Border(lipgloss.NormalBorder()).
		Headers("OPPONENT", "W", "D", "L", "SCORE", "ELO", "LOS", "WIN", "DRAW", "QUALITY").
		Rows(rows...).
		StyleFunc(styled(map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true})).
		String()
}
