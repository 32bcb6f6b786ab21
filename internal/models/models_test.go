package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Role
		wantErr bool
	}{
		{name: "admin", raw: "ADMIN", want: RoleAdmin},
		{name: "staff lowercase", raw: "staff", want: RoleStaff},
		{name: "line manager with whitespace", raw: "  LINE_MANAGER ", want: RoleLineManager},
		{name: "manager", raw: "MANAGER", want: RoleManager},
		{name: "legacy HR rejected", raw: "HR", wantErr: true},
		{name: "legacy HEAD_OF_DEPT rejected", raw: "HEAD_OF_DEPT", wantErr: true},
		{name: "legacy BOD rejected", raw: "BOD", wantErr: true},
		{name: "unknown rejected", raw: "SUPERVISOR", wantErr: true},
		{name: "empty rejected", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRole(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeAchievement(t *testing.T) {
	tests := []struct {
		name      string
		kpiType   string
		target    float64
		actual    float64
		wantPct   float64
		wantScore int
	}{
		{name: "higher better on target", kpiType: KpiTypeQuantHigherBetter, target: 100, actual: 100, wantPct: 100, wantScore: 5},
		{name: "higher better under target", kpiType: KpiTypeQuantHigherBetter, target: 100, actual: 90, wantPct: 90, wantScore: 4},
		{name: "higher better far under", kpiType: KpiTypeQuantHigherBetter, target: 100, actual: 30, wantPct: 30, wantScore: 1},
		{name: "higher better capped at 150", kpiType: KpiTypeQuantHigherBetter, target: 100, actual: 400, wantPct: 150, wantScore: 5},
		{name: "lower better on target", kpiType: KpiTypeQuantLowerBetter, target: 2, actual: 2, wantPct: 100, wantScore: 5},
		{name: "lower better over budget", kpiType: KpiTypeQuantLowerBetter, target: 2, actual: 4, wantPct: 50, wantScore: 2},
		{name: "lower better zero actual beats target", kpiType: KpiTypeQuantLowerBetter, target: 2, actual: 0, wantPct: 150, wantScore: 5},
		{name: "boolean achieved", kpiType: KpiTypeBoolean, actual: 1, wantPct: 100, wantScore: 5},
		{name: "boolean missed", kpiType: KpiTypeBoolean, actual: 0, wantPct: 0, wantScore: 1},
		{name: "milestone partial", kpiType: KpiTypeMilestone, actual: 75, wantPct: 75, wantScore: 3},
		{name: "negative clamped to zero", kpiType: KpiTypeMilestone, actual: -10, wantPct: 0, wantScore: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kpi := &KpiDefinition{Type: tt.kpiType, TargetValue: tt.target}
			pct, score := ComputeAchievement(kpi, tt.actual)
			assert.Equal(t, tt.wantPct, pct)
			assert.Equal(t, tt.wantScore, score)
		})
	}
}

func TestEffectiveSettings(t *testing.T) {
	t.Run("empty settings fall back to defaults", func(t *testing.T) {
		c := &Cycle{}
		s := c.EffectiveSettings()
		assert.Equal(t, 100, s.WeightSumTarget)
		assert.Equal(t, 1, s.MinKpisPerUser)
		assert.Equal(t, 10, s.MaxKpisPerUser)
		assert.False(t, s.RequireEvidence)
	})

	t.Run("stored settings override defaults", func(t *testing.T) {
		c := &Cycle{Settings: datatypes.JSON(`{"weight_sum_target":120,"require_evidence":true}`)}
		s := c.EffectiveSettings()
		assert.Equal(t, 120, s.WeightSumTarget)
		assert.True(t, s.RequireEvidence)
	})

	t.Run("zero limits are backfilled", func(t *testing.T) {
		c := &Cycle{Settings: datatypes.JSON(`{"weight_sum_target":0,"min_kpis_per_user":0}`)}
		s := c.EffectiveSettings()
		assert.Equal(t, 100, s.WeightSumTarget)
		assert.Equal(t, 1, s.MinKpisPerUser)
	})

	t.Run("malformed settings fall back to defaults", func(t *testing.T) {
		c := &Cycle{Settings: datatypes.JSON(`not json`)}
		s := c.EffectiveSettings()
		assert.Equal(t, 100, s.WeightSumTarget)
	})
}

func TestKpiStateHelpers(t *testing.T) {
	assert.True(t, (&KpiDefinition{Status: KpiStatusDraft}).IsEditable())
	assert.True(t, (&KpiDefinition{Status: KpiStatusRejected}).IsEditable())
	assert.False(t, (&KpiDefinition{Status: KpiStatusWaitingLineMgr}).IsEditable())
	assert.False(t, (&KpiDefinition{Status: KpiStatusLockedGoals}).IsEditable())

	assert.True(t, (&KpiDefinition{Status: KpiStatusDraft}).CountsTowardWeight())
	assert.False(t, (&KpiDefinition{Status: KpiStatusRejected}).CountsTowardWeight())
}
