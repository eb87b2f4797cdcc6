// Command taperctl prints tapering schedules from the command line using the
// same protocols as the API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/giygas/desprescricao-api/calculator"
	"github.com/giygas/desprescricao-api/taper"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "taperctl",
		Short:        "Benzodiazepine tapering schedules",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Int("safety-ceiling", taper.DefaultSafetyCeiling, "Largest initial drop count for the tiered protocol")
	rootCmd.PersistentFlags().Int("max-weeks", taper.DefaultExponentialMaxWeeks, "Week cap for the exponential protocol")

	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(protocolsCmd())
	return rootCmd
}

// newCalculator builds a calculator from the persistent flags
func newCalculator(cmd *cobra.Command) (*calculator.Calculator, error) {
	ceiling, _ := cmd.Flags().GetInt("safety-ceiling")
	maxWeeks, _ := cmd.Flags().GetInt("max-weeks")

	registry, err := calculator.NewRegistry(calculator.Options{
		DefaultProtocol:     calculator.ProtocolTiered,
		SafetyCeiling:       ceiling,
		ExponentialMaxWeeks: maxWeeks,
	})
	if err != nil {
		return nil, err
	}
	return calculator.New(registry), nil
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute a tapering schedule",
		Example: "  taperctl schedule --benzo alprazolam --dose 1 --destino clonazepam --inicio 2025-03-27\n" +
			"  taperctl schedule --benzo diazepam --dose 2,5 --destino bromazepam --protocolo exponential --json",
		RunE: func(cmd *cobra.Command, args []string) error {
			benzo, _ := cmd.Flags().GetString("benzo")
			dose, _ := cmd.Flags().GetString("dose")
			destino, _ := cmd.Flags().GetString("destino")
			inicio, _ := cmd.Flags().GetString("inicio")
			protocolo, _ := cmd.Flags().GetString("protocolo")
			asJSON, _ := cmd.Flags().GetBool("json")

			if inicio == "" {
				inicio = time.Now().Format(calculator.StartDateLayout)
			}

			calc, err := newCalculator(cmd)
			if err != nil {
				return err
			}

			result, err := calc.Calculate(calculator.Request{
				SourceDrug:      benzo,
				Dose:            dose,
				DestinationDrug: destino,
				StartDate:       inicio,
				Protocol:        protocolo,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", calculator.KindOf(err), err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), calculator.NewResponse(result))
			}
			return writeSchedule(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().String("benzo", "", "Benzodiazepine currently taken")
	cmd.Flags().String("dose", "", "Daily dose in mg (decimal comma accepted)")
	cmd.Flags().String("destino", "", "Liquid drug to taper with (clonazepam or bromazepam)")
	cmd.Flags().String("inicio", "", "First day of the schedule, YYYY-MM-DD (default today)")
	cmd.Flags().String("protocolo", "", "Tapering protocol (tiered or exponential)")
	cmd.Flags().Bool("json", false, "Print the API JSON response")
	_ = cmd.MarkFlagRequired("benzo")
	_ = cmd.MarkFlagRequired("dose")
	_ = cmd.MarkFlagRequired("destino")

	return cmd
}

func protocolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protocols",
		Short: "List the tapering protocols and their equivalence tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			calc, err := newCalculator(cmd)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), calc.Protocols())
			}
			return writeProtocols(cmd.OutOrStdout(), calc.Protocols())
		},
	}

	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSchedule(w io.Writer, result *calculator.Result) error {
	fmt.Fprintln(w, calculator.EquivalenceNote(result))
	if result.Schedule.HorizonReached {
		fmt.Fprintf(w, "Stopped at the %s week cap\n", result.Protocol)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WEEK\tFROM\tTO\tDROPS")
	for _, e := range result.Schedule.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n",
			e.Week,
			e.PeriodStart.Format(calculator.PeriodLayout),
			e.PeriodEnd.Format(calculator.PeriodLayout),
			e.Drops)
	}
	return tw.Flush()
}

func writeProtocols(w io.Writer, protocols []calculator.ProtocolInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROTOCOL\tTABLE\tCONVENTION\tPOLICY\tMAX WEEKS\tDEFAULT")
	for _, p := range protocols {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n",
			p.Name, p.Table, p.Convention, p.Policy, p.MaxWeeks, p.Default)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, p := range protocols {
		fmt.Fprintf(w, "\n%s factors:\n", p.Name)

		drugs := make([]string, 0, len(p.Factors))
		for drug := range p.Factors {
			drugs = append(drugs, drug)
		}
		sort.Strings(drugs)

		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, drug := range drugs {
			fmt.Fprintf(tw, "  %s\t%g\n", drug, p.Factors[drug])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
