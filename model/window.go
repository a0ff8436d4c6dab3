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

import "time"

// WindowEpoch is the lower bound of the very first reconciliation window.
var WindowEpoch = time.Unix(0, 0).UTC()

// ReconciliationWindow is the audit record of one completed reconciliation
// run. Windows are half-open [Start, End) ranges over the reconciliation key;
// successive windows are contiguous and never overlap.
type ReconciliationWindow struct {
	ID          int64     `json:"-"`
	WindowID    string    `json:"window_id"`
	Start       time.Time `json:"window_start"`
	End         time.Time `json:"window_end"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}
