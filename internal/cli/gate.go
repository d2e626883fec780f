package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aristath/rqlab/internal/modules/circuit"
)

// GateOptions holds the circuit parameter flags shared by every command.
type GateOptions struct {
	Gate     string
	Ej       float64
	Ej2      float64
	Ec       float64
	El       float64
	Coupling float64
	Flux     float64
	Flux2    float64
	NG       float64
	NLevels  int
}

// addGateFlags registers the shared circuit flags on a command.
func addGateFlags(cmd *cobra.Command, opts *GateOptions) {
	cmd.Flags().StringVar(&opts.Gate, "gate", "inverter", "gate topology (inverter|anb|loop)")
	cmd.Flags().Float64Var(&opts.Ej, "ej", 15.0, "Josephson energy in GHz (first junction for anb)")
	cmd.Flags().Float64Var(&opts.Ej2, "ej2", 15.0, "second junction Josephson energy in GHz (anb only)")
	cmd.Flags().Float64Var(&opts.Ec, "ec", 0.3, "charging energy in GHz")
	cmd.Flags().Float64Var(&opts.El, "el", 1.0, "inductive energy in GHz (loop only)")
	cmd.Flags().Float64Var(&opts.Coupling, "coupling", 0.1, "inter-loop coupling in GHz (anb only)")
	cmd.Flags().Float64Var(&opts.Flux, "flux", 0.0, "flux bias in flux quanta (first loop for anb)")
	cmd.Flags().Float64Var(&opts.Flux2, "flux2", 0.0, "second loop flux bias (anb only)")
	cmd.Flags().Float64Var(&opts.NG, "ng", 0.0, "gate charge offset (inverter only)")
	cmd.Flags().IntVar(&opts.NLevels, "n-levels", 5, "energy levels to compute")
}

// Spec assembles and validates the circuit description from the flags.
func (o *GateOptions) Spec() (circuit.Spec, error) {
	topology, err := circuit.ParseTopology(o.Gate)
	if err != nil {
		return circuit.Spec{}, err
	}

	switch topology {
	case circuit.TopologyANB:
		return circuit.NewANBGate(circuit.ANBParameters{
			Ej1:      o.Ej,
			Ej2:      o.Ej2,
			Ec:       o.Ec,
			Coupling: o.Coupling,
			Flux1:    o.Flux,
			Flux2:    o.Flux2,
			NLevels:  o.NLevels,
		})
	case circuit.TopologyLoop:
		return circuit.NewLoop(circuit.GateParameters{
			Ej:      o.Ej,
			Ec:      o.Ec,
			Flux:    o.Flux,
			NLevels: o.NLevels,
		}, o.El)
	default:
		return circuit.NewInverter(circuit.GateParameters{
			Ej:      o.Ej,
			Ec:      o.Ec,
			Flux:    o.Flux,
			NLevels: o.NLevels,
		}, o.NG)
	}
}

// writeJSON pretty-prints a result to the command's stdout.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
