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
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateFormat is the calendar-date layout used on the external wire.
// Benefit periods and unit effective dates carry no time component.
const DateFormat = "2006-01-02"

// GenerateUUIDWithSuffix generates a UUID prefixed with a module name.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// ToDate truncates a timestamp to a calendar date in UTC.
func ToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar date for the external wire format.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// ParseDate parses a calendar date from the external wire format.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}
