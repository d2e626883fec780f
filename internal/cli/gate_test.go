package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rqlab/internal/modules/circuit"
)

func TestGateOptions_Spec(t *testing.T) {
	tests := []struct {
		name    string
		opts    GateOptions
		want    circuit.Topology
		wantErr bool
	}{
		{
			name: "inverter",
			opts: GateOptions{Gate: "inverter", Ej: 15, Ec: 0.3, Flux: 0.25, NG: 0.1, NLevels: 5},
			want: circuit.TopologyInverter,
		},
		{
			name: "anb",
			opts: GateOptions{Gate: "anb", Ej: 15, Ej2: 14, Ec: 0.3, Coupling: 0.2, Flux: 0.1, Flux2: 0.9, NLevels: 5},
			want: circuit.TopologyANB,
		},
		{
			name: "loop",
			opts: GateOptions{Gate: "loop", Ej: 15, Ec: 0.3, El: 2, Flux: 0.5, NLevels: 5},
			want: circuit.TopologyLoop,
		},
		{
			name:    "unknown gate",
			opts:    GateOptions{Gate: "nand", Ej: 15, Ec: 0.3, NLevels: 5},
			wantErr: true,
		},
		{
			name:    "invalid energy",
			opts:    GateOptions{Gate: "inverter", Ej: -15, Ec: 0.3, NLevels: 5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.opts.Spec()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, circuit.ErrInvalidParameter))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.Topology)
		})
	}
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("csv"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

func TestRootCommand_RejectsBadFlags(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"spectrum", "--format", "yaml"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
