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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeverityStatusMapping(t *testing.T) {
	tests := []struct {
		severity Severity
		want     PaymentStatus
	}{
		{SeverityOK, StatusAccepted},
		{SeverityWarning, StatusAcceptedWithWarning},
		{SeverityError, StatusRejected},
		{SeverityFatal, StatusRejected},
	}

	for _, tt := range tests {
		status, ok := tt.severity.Status()
		assert.True(t, ok, "severity %s should be defined", tt.severity)
		assert.Equal(t, tt.want, status)
	}

	_, ok := Severity("99").Status()
	assert.False(t, ok, "undefined severity must not map to a status")
}

func TestClassify(t *testing.T) {
	c, ok := Classify(StatusSent)
	assert.True(t, ok)
	assert.Equal(t, ClassificationMissing, c)

	c, ok = Classify(StatusAcceptedWithWarning)
	assert.True(t, ok)
	assert.Equal(t, ClassificationWarning, c)

	c, ok = Classify(StatusRejected)
	assert.True(t, ok)
	assert.Equal(t, ClassificationRejected, c)

	// Accepted payments are counted in totals only.
	_, ok = Classify(StatusAccepted)
	assert.False(t, ok)
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, StatusSent.Terminal())
	assert.True(t, StatusAccepted.Terminal())
	assert.True(t, StatusAcceptedWithWarning.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestToDate(t *testing.T) {
	ts := time.Date(2024, 3, 15, 13, 45, 12, 999, time.FixedZone("CET", 3600))
	d := ToDate(ts)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "2024-03-15", FormatDate(d))

	parsed, err := ParseDate("2024-03-15")
	assert.NoError(t, err)
	assert.True(t, parsed.Equal(d))
}

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("pay")
	assert.True(t, strings.HasPrefix(id, "pay_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("pay"))
}
