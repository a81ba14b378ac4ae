package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"zenbank/internal/core"
	"zenbank/internal/services"
)

const dateLayout = "2006-01-02 15:04"

type palette struct {
	title  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	cell   lipgloss.Style
	amount lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	empty  lipgloss.Style
	border lipgloss.Style
}

var styles = palette{
	title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241")).Padding(0, 1),
	label:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14),
	cell:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1),
	amount: lipgloss.NewStyle().Foreground(lipgloss.Color("159")).Padding(0, 1).Align(lipgloss.Right),
	ok:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
	warn:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	empty:  lipgloss.NewStyle().Faint(true),
	border: lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
}

// newTable builds a bordered table; columns listed in numeric are right
// aligned.
func newTable(headers []string, rows [][]string, numeric ...int) string {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.header
			case right[col]:
				return styles.amount
			default:
				return styles.cell
			}
		})
	return t.Render()
}

func renderAccounts(users []core.User) string {
	if len(users) == 0 {
		return styles.empty.Render("no accounts")
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.Username,
			u.Profile.Name,
			u.Balance.String(),
			strconv.Itoa(len(u.Transactions)),
			formatDate(u.CreatedAt),
		})
	}
	return newTable([]string{"USERNAME", "NAME", "BALANCE", "TXS", "CREATED"}, rows, 2, 3)
}

// renderAccount shows the profile and totals of u followed by history.
func renderAccount(u core.User, history []core.Transaction) string {
	s := u.Summary()
	field := func(label, value string) string {
		if value == "" {
			value = styles.empty.Render("-")
		}
		return styles.label.Render(label) + value
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(u.Username))
	b.WriteString("\n")
	for _, line := range []string{
		field("id", u.ID),
		field("name", u.Profile.Name),
		field("email", u.Profile.Email),
		field("phone", u.Profile.Phone),
		field("address", u.Profile.Address),
		field("balance", u.Balance.String()),
		field("deposits", s.Deposits.String()),
		field("withdrawals", s.Withdrawals.String()),
		field("transactions", strconv.Itoa(s.Count)),
		field("last activity", formatDate(s.LastActivity)),
	} {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(renderHistory(history))
	return b.String()
}

func renderHistory(history []core.Transaction) string {
	if len(history) == 0 {
		return styles.empty.Render("no transactions")
	}
	rows := make([][]string, 0, len(history))
	for _, tx := range history {
		amount := tx.Amount.String()
		if tx.Type == core.Withdrawal {
			amount = "-" + amount
		}
		rows = append(rows, []string{formatDate(tx.Date), string(tx.Type), amount, tx.ID})
	}
	return newTable([]string{"DATE", "TYPE", "AMOUNT", "ID"}, rows, 2)
}

func renderSuggestion(username string, t core.TransactionType, s services.Suggestion) string {
	amounts := make([]string, len(s.Amounts))
	for i, a := range s.Amounts {
		amounts[i] = core.MoneyFromUnits(a).String()
	}
	line := fmt.Sprintf("%s suggestions for %s: %s",
		styles.title.Render(string(t)),
		username,
		strings.Join(amounts, "  "))
	source := styles.label.UnsetWidth().Render("source " + string(s.Source))
	if s.Reason != "" {
		source += styles.empty.Render(" (" + s.Reason + ")")
	}
	return line + "\n" + source
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(dateLayout)
}
