package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/argo-pricefetch/internal/config"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
	"github.com/rxtech-lab/argo-pricefetch/pkg/errors"
	"github.com/rxtech-lab/argo-pricefetch/pkg/marketdata"
	"github.com/rxtech-lab/argo-pricefetch/pkg/portfolio"
	"github.com/urfave/cli/v3"
)

// previewRows is the number of return rows shown by the returns command.
const previewRows = 5

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

func newReturnsCommand(d deps) *cli.Command {
	return &cli.Command{
		Name:      "returns",
		Usage:     "Load a price CSV and print its simple returns",
		ArgsUsage: "<csv>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New(errors.ErrCodeInvalidParameter, "returns takes exactly one CSV path")
			}

			prices, err := marketdata.LoadPriceCSV(cmd.Args().First())
			if err != nil {
				return err
			}

			fmt.Fprintf(d.stdout, "Loaded %d assets × %d observations\n", prices.Columns(), prices.Rows())

			returns := prices.SimpleReturns()
			fmt.Fprintf(d.stdout, "Computed simple returns: %d assets × %d observations\n", returns.Columns(), returns.Rows())
			fmt.Fprintln(d.stdout, renderTable(returns, previewRows))

			return nil
		},
	}
}

// renderTable draws the first limit rows of t.
func renderTable(t *types.PriceTable, limit int) string {
	headers := append([]string{t.IndexName}, t.Tickers...)

	rows := make([][]string, 0, min(limit, t.Rows()))
	for i := 0; i < t.Rows() && i < limit; i++ {
		row := t.Row(i)

		cells := make([]string, 0, len(headers))
		cells = append(cells, t.FormatTime(row.Time))

		for _, value := range row.Values {
			if value.IsNone() {
				cells = append(cells, "NaN")

				continue
			}

			cells = append(cells, strconv.FormatFloat(value.Unwrap(), 'f', 6, 64))
		}

		rows = append(rows, cells)
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		}).
		String()
}

func newOptimizeCommand(d deps) *cli.Command {
	methods := portfolio.Methods()

	commands := make([]*cli.Command, 0, len(methods))
	for _, method := range methods {
		commands = append(commands, newOptimizeMethodCommand(d, method))
	}

	return &cli.Command{
		Name:     "optimize",
		Usage:    "Compute portfolio weights from a price CSV",
		Commands: commands,
	}
}

func newOptimizeMethodCommand(d deps, method portfolio.Method) *cli.Command {
	command := &cli.Command{
		Name:      string(method),
		Usage:     method.Title(),
		ArgsUsage: "<csv>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.Newf(errors.ErrCodeInvalidParameter, "%s takes exactly one CSV path", method)
			}

			prices, err := marketdata.LoadPriceCSV(cmd.Args().First())
			if err != nil {
				return err
			}

			allocation, err := portfolio.Optimize(method, prices, portfolio.Options{
				RiskFree: cmd.Float("risk-free"),
			})
			if err != nil {
				return err
			}

			if method == portfolio.MethodERC {
				if allocation.Converged {
					fmt.Fprintf(d.stdout, "Converged in %d iterations\n", allocation.Iterations)
				} else {
					fmt.Fprintf(d.stderr, "Warning: ERC solver did not converge after %d iterations\n", allocation.Iterations)
				}
			}

			fmt.Fprintf(d.stdout, "%s (%d observations):\n", allocation.Method.Title(), allocation.Observations)
			fmt.Fprintln(d.stdout, renderWeights(allocation))

			return nil
		},
	}

	if method == portfolio.MethodMaxSharpeLong {
		command.Flags = []cli.Flag{
			&cli.FloatFlag{
				Name:    "risk-free",
				Aliases: []string{"r"},
				Usage:   "Annual risk-free rate (0.02 for 2%)",
				Value:   0,
			},
		}
	}

	return command
}

func renderWeights(allocation *portfolio.Allocation) string {
	rows := make([][]string, 0, len(allocation.Tickers))
	for i, ticker := range allocation.Tickers {
		rows = append(rows, []string{ticker, fmt.Sprintf("%.2f%%", allocation.Weights[i]*100)})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Ticker", "Weight").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1:
				return numberStyle
			default:
				return cellStyle
			}
		}).
		String()
}

func newSchemaCommand(d deps) *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the config file",
		Action: func(_ context.Context, _ *cli.Command) error {
			schema, err := config.Schema()
			if err != nil {
				return errors.Wrap(errors.ErrCodeUnknown, "failed to generate config schema", err)
			}

			fmt.Fprintln(d.stdout, schema)

			return nil
		},
	}
}

func newProvidersCommand(d deps) *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "List the supported market data providers",
		Action: func(_ context.Context, _ *cli.Command) error {
			rows := make([][]string, 0)

			for _, name := range marketdata.GetSupportedProviders() {
				info, err := marketdata.GetProviderInfo(name)
				if err != nil {
					return err
				}

				rows = append(rows, []string{
					info.Name,
					info.DisplayName,
					strconv.FormatBool(info.RequiresAuth),
					strconv.FormatBool(info.AdjustedClose),
				})
			}

			fmt.Fprintln(d.stdout, table.New().
				Border(lipgloss.NormalBorder()).
				Headers("Name", "Provider", "Requires Auth", "Adj Close").
				Rows(rows...).
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}

					return cellStyle
				}).
				String())

			return nil
		},
	}
}
