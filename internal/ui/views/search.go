// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/util"
)

// =============================================================================
// SEARCH MODEL
// =============================================================================

// SearchModel is the Bubble Tea model for the product search screen.
// Results arrive already ranked by the backend; the cheapest offer is
// flagged as the best deal.
type SearchModel struct {
	ctx *Ctx

	input   textinput.Model
	results table.Model
	spinner spinner.Model

	products []api.Product
	query    string

	busy       bool
	err        error
	hasResults bool

	width  int
	height int
}

type searchResultsMsg struct {
	query    string
	products []api.Product
	err      error
}

// NewSearch builds the product search view.
func NewSearch(ctx *Ctx) *SearchModel {
	m := &SearchModel{ctx: ctx}

	m.input = textinput.New()
	m.input.Placeholder = "search products (e.g. iphone 15)"
	m.input.Prompt = "? "
	m.input.PromptStyle = ctx.Theme.InputPrompt
	m.input.PlaceholderStyle = ctx.Theme.InputPlaceholder
	m.input.CharLimit = 200
	m.input.Focus()

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = ctx.Theme.Spinner

	m.results = m.buildTable(nil)
	return m
}

func (m *SearchModel) buildTable(rows []table.Row) table.Model {
	nameWidth := m.width - 34
	if nameWidth < 24 {
		nameWidth = 24
	}
	height := m.ctx.Config.Search.PageSize
	if height < 3 {
		height = 3
	}
	cols := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Product", Width: nameWidth},
		{Title: "Price", Width: 18},
		{Title: "Deal", Width: 6},
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = m.ctx.Theme.TableHeader
	s.Selected = m.ctx.Theme.ListItemSelected
	t.SetStyles(s)
	return t
}

func (m *SearchModel) Init() tea.Cmd {
	return textinput.Blink
}

// SetQuery pre-fills the query and runs it, used when arriving here
// from the chat view's /search command.
func (m *SearchModel) SetQuery(query string) tea.Cmd {
	m.input.SetValue(query)
	m.input.CursorEnd()
	return m.submit()
}

// =============================================================================
// UPDATE
// =============================================================================

func (m *SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.results = m.buildTable(m.rows())
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case searchResultsMsg:
		m.busy = false
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.query = msg.query
		m.products = msg.products
		m.hasResults = true
		m.results = m.buildTable(m.rows())
		if len(msg.products) > 0 {
			m.results.Focus()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if m.busy {
				return m, nil
			}
			if m.input.Focused() {
				return m, m.submit()
			}
			// Enter on a row shows the product link in the footer; the
			// selected row is already visible, so just refocus input.
			m.focusInput()
			return m, nil
		case "up", "down", "pgup", "pgdown":
			if !m.input.Focused() {
				var cmd tea.Cmd
				m.results, cmd = m.results.Update(msg)
				return m, cmd
			}
			if len(m.products) > 0 {
				m.input.Blur()
				m.results.Focus()
				return m, nil
			}
		case "esc":
			if !m.input.Focused() {
				m.focusInput()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *SearchModel) focusInput() {
	m.results.Blur()
	m.input.Focus()
}

func (m *SearchModel) submit() tea.Cmd {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return nil
	}
	m.busy = true
	m.err = nil
	client := m.ctx.Client
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		products, err := client.Search(ctx, query)
		if err != nil {
			return searchResultsMsg{query: query, err: err}
		}
		return searchResultsMsg{query: query, products: products}
	})
}

func (m *SearchModel) rows() []table.Row {
	currency := m.ctx.Config.Search.Currency
	rows := make([]table.Row, 0, len(m.products))
	for i, p := range m.products {
		deal := ""
		if p.BestDeal {
			deal = "BEST"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			p.Name,
			util.FormatPrice(p.Price, currency),
			deal,
		})
	}
	return rows
}

// =============================================================================
// VIEW
// =============================================================================

func (m *SearchModel) View() string {
	t := m.ctx.Theme

	var b strings.Builder
	b.WriteString(t.Title.Render("Product Search"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.busy:
		b.WriteString(m.spinner.View())
		b.WriteString(t.Thinking.Render(" searching..."))
	case m.err != nil:
		b.WriteString(t.ErrorText.Render("search failed: " + m.err.Error()))
	case m.hasResults && len(m.products) == 0:
		b.WriteString(t.ListMeta.Render(fmt.Sprintf("no results for %q", m.query)))
	case m.hasResults:
		b.WriteString(m.results.View())
		b.WriteString("\n")
		b.WriteString(m.selectedFooter())
	default:
		b.WriteString(t.ListMeta.Render("type a query and press enter"))
	}

	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

// selectedFooter shows the URL and deal flag for the highlighted row.
func (m *SearchModel) selectedFooter() string {
	t := m.ctx.Theme
	idx := m.results.Cursor()
	if idx < 0 || idx >= len(m.products) {
		return ""
	}
	p := m.products[idx]
	line := t.ListMeta.Render(p.URL)
	if p.BestDeal {
		line = t.BestDeal.Render("best deal") + "  " + line
	}
	return line
}
