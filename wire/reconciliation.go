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

package wire

import (
	"encoding/xml"
	"time"

	"github.com/jerry-enebeli/oppgjor/model"
)

// DetailsPerMessage is the external system's documented limit on detail
// lines per reconciliation DATA message.
const DetailsPerMessage = 70

// keyFormat renders reconciliation keys on the wire (compact timestamp).
const keyFormat = "20060102150405"

// EmptyKey is sent as the key range bound when the window holds no records.
const EmptyKey = "0"

// MessageType distinguishes the three parts of the reconciliation envelope.
type MessageType string

const (
	MessageStart MessageType = "START"
	MessageData  MessageType = "DATA"
	MessageEnd   MessageType = "END"
)

// ReconciliationMessage is one message of the START/DATA*/END envelope sent
// per reconciliation run. The envelope must be transmitted in strict order.
type ReconciliationMessage struct {
	XMLName     xml.Name     `xml:"reconciliation"`
	Type        MessageType  `xml:"type"`
	RunID       string       `xml:"runId"`
	Source      string       `xml:"source"`
	Destination string       `xml:"destination"`
	KeyFrom     string       `xml:"keyFrom"`
	KeyTo       string       `xml:"keyTo"`
	Totals      *Totals      `xml:"totals,omitempty"`
	Period      *Period      `xml:"period,omitempty"`
	Details     []DetailLine `xml:"details>detail,omitempty"`
}

// Totals carries the aggregate counts per classification. Only the first
// DATA message of an envelope has totals.
type Totals struct {
	Accepted int `xml:"accepted"`
	Warning  int `xml:"warning"`
	Rejected int `xml:"rejected"`
	Missing  int `xml:"missing"`
	Total    int `xml:"total"`
}

// Period is the half-open window bounds of the reconciliation run.
type Period struct {
	From string `xml:"from"`
	To   string `xml:"to"`
}

// DetailLine is one non-accepted payment reported in a DATA message.
type DetailLine struct {
	Classification string `xml:"classification,attr"`
	PaymentID      string `xml:"paymentRef"`
	DecisionID     string `xml:"decisionId"`
	CaseID         string `xml:"caseId"`
	ErrorCode      string `xml:"errorCode,omitempty"`
	ErrorMessage   string `xml:"errorMessage,omitempty"`
	ReceiptAt      string `xml:"receiptAt,omitempty"`
}

// FormatKey renders a reconciliation key for the wire.
func FormatKey(t time.Time) string {
	return t.UTC().Format(keyFormat)
}

// BuildEnvelope maps a window of ledger records to the full reconciliation
// envelope: one START message, one or more DATA messages with at most
// DetailsPerMessage detail lines each (the first carries totals and the
// period bounds; a windowless run still produces one empty DATA message),
// and one END sentinel.
func BuildEnvelope(runID, source, destination string, records []*model.PaymentRecord, windowStart, windowEnd time.Time) []*ReconciliationMessage {
	keyFrom, keyTo := keyRange(records)

	header := func(t MessageType) *ReconciliationMessage {
		return &ReconciliationMessage{
			Type:        t,
			RunID:       runID,
			Source:      source,
			Destination: destination,
			KeyFrom:     keyFrom,
			KeyTo:       keyTo,
		}
	}

	totals := &Totals{Total: len(records)}
	var details []DetailLine
	for _, r := range records {
		classification, reportable := model.Classify(r.Status)
		switch classification {
		case model.ClassificationMissing:
			totals.Missing++
		case model.ClassificationWarning:
			totals.Warning++
		case model.ClassificationRejected:
			totals.Rejected++
		default:
			totals.Accepted++
		}
		if !reportable {
			continue
		}
		line := DetailLine{
			Classification: string(classification),
			PaymentID:      r.PaymentID,
			DecisionID:     r.DecisionID,
			CaseID:         r.CaseID,
			ErrorCode:      r.ErrorCode,
			ErrorMessage:   r.ErrorMessage,
		}
		if r.ReceiptAt != nil {
			line.ReceiptAt = FormatKey(*r.ReceiptAt)
		}
		details = append(details, line)
	}

	envelope := []*ReconciliationMessage{header(MessageStart)}
	for i, chunk := range chunkDetails(details) {
		msg := header(MessageData)
		msg.Details = chunk
		if i == 0 {
			msg.Totals = totals
			msg.Period = &Period{From: FormatKey(windowStart), To: FormatKey(windowEnd)}
		}
		envelope = append(envelope, msg)
	}
	return append(envelope, header(MessageEnd))
}

// MarshalMessage serializes one envelope message for the send queue.
func MarshalMessage(msg *ReconciliationMessage) ([]byte, error) {
	return xml.MarshalIndent(msg, "", "  ")
}

// ParseMessage deserializes an envelope message.
func ParseMessage(raw []byte) (*ReconciliationMessage, error) {
	var msg ReconciliationMessage
	if err := xml.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func keyRange(records []*model.PaymentRecord) (string, string) {
	if len(records) == 0 {
		return EmptyKey, EmptyKey
	}
	min, max := records[0].ReconciliationKey, records[0].ReconciliationKey
	for _, r := range records[1:] {
		if r.ReconciliationKey.Before(min) {
			min = r.ReconciliationKey
		}
		if r.ReconciliationKey.After(max) {
			max = r.ReconciliationKey
		}
	}
	return FormatKey(min), FormatKey(max)
}

// chunkDetails splits detail lines into DATA-message batches, preserving
// order. A run with no detail lines still yields a single empty batch so the
// totals have a message to ride on.
func chunkDetails(details []DetailLine) [][]DetailLine {
	if len(details) == 0 {
		return [][]DetailLine{nil}
	}
	var chunks [][]DetailLine
	for start := 0; start < len(details); start += DetailsPerMessage {
		end := start + DetailsPerMessage
		if end > len(details) {
			end = len(details)
		}
		chunks = append(chunks, details[start:end])
	}
	return chunks
}
