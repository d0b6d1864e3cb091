package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The server's fetch endpoints are not consistent about payload shape:
// depending on route and version they return a bare array, a
// {personal, joint} split, or a {transactions: ...} envelope around
// either. These decoders normalize every shape in one place so nothing
// downstream ever branches on it.

type splitEnvelope struct {
	Personal []wireTransaction
	Joint    []wireTransaction
}

type rawEnvelope struct {
	Personal     []wireTransaction `json:"personal"`
	Joint        []wireTransaction `json:"joint"`
	Transactions json.RawMessage   `json:"transactions"`
}

// decodeSplit normalizes an account-scoped response into the
// personal/joint split. A bare array is treated as all-personal.
func decodeSplit(data []byte) (splitEnvelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var rows []wireTransaction
		if err := json.Unmarshal(data, &rows); err != nil {
			return splitEnvelope{}, fmt.Errorf("failed to decode transaction array: %w", err)
		}
		return splitEnvelope{Personal: rows}, nil
	}

	var envelope rawEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return splitEnvelope{}, fmt.Errorf("failed to decode transaction payload: %w", err)
	}
	if len(envelope.Transactions) > 0 {
		return decodeSplit(envelope.Transactions)
	}
	if envelope.Personal == nil && envelope.Joint == nil {
		return splitEnvelope{}, fmt.Errorf("unrecognized transaction payload shape")
	}
	return splitEnvelope{Personal: envelope.Personal, Joint: envelope.Joint}, nil
}

// decodeList normalizes a global-list response into one flat slice. A
// split payload is flattened personal-then-joint.
func decodeList(data []byte) ([]wireTransaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var rows []wireTransaction
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode transaction array: %w", err)
		}
		return rows, nil
	}

	var envelope rawEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode transaction payload: %w", err)
	}
	if len(envelope.Transactions) > 0 {
		return decodeList(envelope.Transactions)
	}
	if envelope.Personal == nil && envelope.Joint == nil {
		return nil, fmt.Errorf("unrecognized transaction payload shape")
	}
	return append(envelope.Personal, envelope.Joint...), nil
}
