package texture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableInvariants(t *testing.T) {
	t.Parallel()

	assert.Len(t, Classes(), 11)

	for _, class := range Classes() {
		p, ok := Lookup(class)
		require.True(t, ok, class)

		assert.Greater(t, p.ThetaS, p.ThetaFC, "%s: porosity > field capacity", class)
		assert.Greater(t, p.ThetaFC, p.ThetaWP, "%s: field capacity > wilting point", class)
		assert.Greater(t, p.ThetaWP, 0.0, "%s: wilting point > 0", class)
		assert.LessOrEqual(t, p.ThetaS, 1.0, "%s: porosity <= 1", class)
		assert.Less(t, p.InitDeficit, p.ThetaS, "%s: initial deficit < porosity", class)
		assert.Greater(t, p.Ks, 0.0, "%s: conductivity > 0", class)
		assert.Greater(t, p.Psi, 0.0, "%s: suction > 0", class)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		label string
		want  string
	}{
		{"exact", "Loam", Loam},
		{"lowercase", "silty clay loam", SiltyClayLoam},
		{"uppercase", "SAND", Sand},
		{"whitespace", "  Clay Loam  ", ClayLoam},
		{"unrecognized", "Gravelly Muck", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.label))
		})
	}
}

func TestLookupUnknownClass(t *testing.T) {
	t.Parallel()

	_, ok := Lookup("Peat")
	assert.False(t, ok)
}
