/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() RecordDisbursement {
	return RecordDisbursement{
		DecisionID:   "dec_1",
		CaseID:       "case_1",
		PersonID:     "01019012345",
		Sequence:     1,
		SourceSystem: "PEN",
		Units: []BeneficiaryUnitRequest{
			{UnitCode: "4410", EffectiveFrom: "2024-01-01"},
		},
		Periods: []BenefitPeriodRequest{
			{CategoryCode: "UFOREP", Amount: 1250000, From: "2024-06-01", To: "2024-06-30"},
		},
	}
}

func TestValidateRecordDisbursement(t *testing.T) {
	valid := validRequest()
	assert.NoError(t, valid.ValidateRecordDisbursement())

	noDecision := validRequest()
	noDecision.DecisionID = ""
	assert.Error(t, noDecision.ValidateRecordDisbursement())

	zeroSequence := validRequest()
	zeroSequence.Sequence = 0
	assert.Error(t, zeroSequence.ValidateRecordDisbursement())

	noPeriods := validRequest()
	noPeriods.Periods = nil
	assert.Error(t, noPeriods.ValidateRecordDisbursement())

	badDate := validRequest()
	badDate.Periods[0].From = "01.06.2024"
	assert.Error(t, badDate.ValidateRecordDisbursement())

	negativeAmount := validRequest()
	negativeAmount.Periods[0].Amount = -5
	assert.Error(t, negativeAmount.ValidateRecordDisbursement())
}

func TestToPaymentDecision(t *testing.T) {
	req := validRequest()
	decision, err := req.ToPaymentDecision()
	require.NoError(t, err)

	assert.Equal(t, "dec_1", decision.DecisionID)
	require.Len(t, decision.Periods, 1)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), decision.Periods[0].From)
	assert.Equal(t, int64(1250000), decision.Periods[0].Amount)
	require.Len(t, decision.Units, 1)
	assert.Equal(t, "4410", decision.Units[0].UnitCode)
}

func TestValidateOverridePayment(t *testing.T) {
	override := OverridePayment{Operator: "saksbehandler-42"}
	assert.NoError(t, override.ValidateOverridePayment())

	override.Operator = ""
	assert.Error(t, override.ValidateOverridePayment())
}
