package cli

import (
	"github.com/spf13/cobra"

	"github.com/aristath/rqlab/internal/modules/charts"
	"github.com/aristath/rqlab/internal/modules/simulation"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	Lo          float64
	Hi          float64
	NPoints     int
	MaxFailures int
}

// NewSweepCommand creates the sweep command: diagonalize the circuit over
// an evenly spaced flux range.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	gateOpts := &GateOptions{}
	opts := &SweepOptions{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep the flux bias and record the spectrum at each point",
		Long: `Diagonalize the gate circuit at evenly spaced flux values between --lo
and --hi inclusive. Points that fail to diagonalize are recorded as failed
and the sweep continues; --max-failures aborts once too many points fail.

Example:
  rqlab sweep --gate inverter --ej 15 --ec 0.3 --n-points 101
  rqlab sweep --gate loop --el 2 --lo 0.4 --hi 0.6 --format csv > sweep.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, rootOpts, gateOpts, opts)
		},
	}

	addGateFlags(cmd, gateOpts)
	cmd.Flags().Float64Var(&opts.Lo, "lo", 0.0, "sweep start flux")
	cmd.Flags().Float64Var(&opts.Hi, "hi", 1.0, "sweep end flux")
	cmd.Flags().IntVar(&opts.NPoints, "n-points", 100, "number of sweep points")
	cmd.Flags().IntVar(&opts.MaxFailures, "max-failures", 0, "abort after this many failed points (0 = never)")

	return cmd
}

func runSweep(cmd *cobra.Command, rootOpts *RootOptions, gateOpts *GateOptions, opts *SweepOptions) error {
	log := rootOpts.logger()

	spec, err := gateOpts.Spec()
	if err != nil {
		return err
	}

	sim, err := simulation.NewChargeBasisSimulator(rootOpts.Cutoff, log)
	if err != nil {
		return err
	}
	svc := simulation.NewService(sim, nil, log)

	result, err := svc.FluxSweep(cmd.Context(), spec, simulation.SweepConfig{
		Lo:          opts.Lo,
		Hi:          opts.Hi,
		NPoints:     opts.NPoints,
		NLevels:     gateOpts.NLevels,
		MaxFailures: opts.MaxFailures,
	})
	if err != nil {
		return err
	}

	out, closeOut, err := rootOpts.outWriter(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	if rootOpts.Format == "csv" {
		return charts.NewService(log).WriteSweepCSV(out, result.Points, gateOpts.NLevels)
	}
	return writeJSON(out, result)
}
