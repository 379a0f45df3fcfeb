package parser

import (
	"fmt"
	"testing"

	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/stretchr/testify/require"
)

func sapFlowAllFixture(rows int) string {
	s := `"TOA5","CR300Series_420","CR300","12345","CR300.Std.08","CPI1","12345","SapFlowAll"
"TIMESTAMP","RECORD","BattV_Min","PTemp_Avg","S0_AlphaOut","S0_BetaOut","S0_TMaxDOut","S0_TMaxUOut","S0_PreDOut","S0_RiseDOut","S0_PostDOut","S0_PreUOut","S0_RiseUOut","S0_PostUOut"
"TS","RN","Volts","Deg C","unitless","unitless","sec","sec","Deg C","Deg C","Deg C","Deg C","Deg C","Deg C"
"","","Min","Avg","Smp","Smp","Smp","Smp","Smp","Smp","Smp","Smp","Smp","Smp"
`
	for i := 0; i < rows; i++ {
		s += fmt.Sprintf("\"2024-01-01 00:%02d:00\",%d,12.6,22.1,0.5,0.3,10,12,20,21,20.5,20,21.2,20.6\n", i, i+1)
	}
	return s
}

func TestSapFlowAllParsesCanonicalSchema(t *testing.T) {
	pf, err := SapFlowAll{}.Parse([]byte(sapFlowAllFixture(3)))
	require.NoError(t, err)
	require.Equal(t, "420", pf.LoggerRows[0].LoggerID)
	require.Len(t, pf.LoggerRows, 3)
	require.Len(t, pf.Sensors, 1)
	require.Equal(t, "0", pf.Sensors[0].SDIAddress)
	outer, ok := pf.Sensors[0].Depths[model.DepthOuter]
	require.True(t, ok)
	require.Len(t, outer, 3)
	require.NotNil(t, outer[0].Alpha)
	require.InDelta(t, 0.5, *outer[0].Alpha, 1e-9)
}

func TestSapFlowAllRejectsNonMonotonicRecord(t *testing.T) {
	bad := `"TOA5","CR300Series_420","CR300","12345","CR300.Std.08","CPI1","12345","SapFlowAll"
"TIMESTAMP","RECORD","BattV_Min","PTemp_Avg","S0_AlphaOut","S0_BetaOut","S0_TMaxDOut","S0_TMaxUOut","S0_PreDOut","S0_RiseDOut","S0_PostDOut","S0_PreUOut","S0_RiseUOut","S0_PostUOut"
"TS","RN","Volts","Deg C","unitless","unitless","sec","sec","Deg C","Deg C","Deg C","Deg C","Deg C","Deg C"
"","","Min","Avg","Smp","Smp","Smp","Smp","Smp","Smp","Smp","Smp","Smp","Smp"
"2024-01-01 00:00:00",1,12.6,22.1,0.5,0.3,10,12,20,21,20.5,20,21.2,20.6
"2024-01-01 00:30:00",3,12.6,22.1,0.5,0.3,10,12,20,21,20.5,20,21.2,20.6
`
	_, err := SapFlowAll{}.Parse([]byte(bad))
	require.Error(t, err)
	pe, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindNonMonotonic, pe.Kind)
}

func TestSapFlowAllNotMatchedYieldsFormatMismatch(t *testing.T) {
	notSapFlow := `"TOA5","CR300Series_420","CR300","12345","CR300.Std.08","CPI1","12345","AlphaOut_S0Table"
"TIMESTAMP","RECORD","BattV_Min","PTemp_Avg","id","AlphaOut_S0"
"TS","RN","Volts","Deg C","","unitless"
"","","Min","Avg","","Smp"
"2024-01-01 00:00:00",1,12.6,22.1,420,0.5
`
	_, err := SapFlowAll{}.Parse([]byte(notSapFlow))
	require.Error(t, err)
	pe, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindFormatMismatch, pe.Kind)
	require.True(t, pe.Recoverable())
}

func TestCR300TableInconsistentLoggerID(t *testing.T) {
	bad := `"TOA5","CR300Series_420","CR300","12345","CR300.Std.08","CPI1","12345","Table1"
"TIMESTAMP","RECORD","BattV_Min","PTemp_Avg","id","AlphaOut_S0"
"TS","RN","Volts","Deg C","","unitless"
"","","Min","Avg","","Smp"
"2024-01-01 00:00:00",1,12.6,22.1,420,0.5
"2024-01-01 00:30:00",2,12.6,22.1,421,0.5
`
	_, err := CR300Table{}.Parse([]byte(bad))
	require.Error(t, err)
	pe, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindInconsistentID, pe.Kind)
}

func TestFamilyDispatchFallsThrough(t *testing.T) {
	cr300 := `"TOA5","CR300Series_420","CR300","12345","CR300.Std.08","CPI1","12345","Table1"
"TIMESTAMP","RECORD","BattV_Min","PTemp_Avg","id","AlphaOut_S0"
"TS","RN","Volts","Deg C","","unitless"
"","","Min","Avg","","Smp"
"2024-01-01 00:00:00",1,12.6,22.1,420,0.5
`
	pf, attempts, err := ParseFile([]byte(cr300), DefaultFamily())
	require.NoError(t, err)
	require.NotNil(t, pf)
	require.Len(t, attempts, 2) // SapFlowAll mismatches, CR300Table succeeds
	require.Equal(t, FamilySapFlowAll, attempts[0].Family)
	require.Error(t, attempts[0].Err)
	require.Equal(t, FamilyCR300Table, attempts[1].Family)
	require.NoError(t, attempts[1].Err)
}

func TestNoDerivedMetricsSurvive(t *testing.T) {
	withDerived := `"TOA5","CR300Series_420","CR300","12345","CR300.Std.08","CPI1","12345","SapFlowAll"
"TIMESTAMP","RECORD","BattV_Min","PTemp_Avg","S0_AlphaOut","S0_VhOut","S0_TotalSapFlowOut"
"TS","RN","Volts","Deg C","unitless","cm/hr","L/hr"
"","","Min","Avg","Smp","Smp","Smp"
"2024-01-01 00:00:00",1,12.6,22.1,0.5,3.2,0.1
`
	pf, err := SapFlowAll{}.Parse([]byte(withDerived))
	require.NoError(t, err)
	require.Len(t, pf.Sensors, 1)
	require.NotNil(t, pf.Sensors[0].Depths[model.DepthOuter][0].Alpha)
}
