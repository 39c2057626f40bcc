package draft

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownAction is returned for an envelope whose type names no action
var ErrUnknownAction = errors.New("unknown draft action")

// Envelope is the wire form of an action: {"type": "add_line", "payload": {...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var decoders = map[string]func(json.RawMessage) (Action, error){
	AddLine{}.Kind():                decodeAs[AddLine],
	UpdateLine{}.Kind():             decodeAs[UpdateLine],
	RemoveLine{}.Kind():             decodeAs[RemoveLine],
	SetRecipient{}.Kind():           decodeAs[SetRecipient],
	SetBranch{}.Kind():              decodeAs[SetBranch],
	SetPriceList{}.Kind():           decodeAs[SetPriceList],
	SetGlobalDiscount{}.Kind():      decodeAs[SetGlobalDiscount],
	AddPayment{}.Kind():             decodeAs[AddPayment],
	RemovePayment{}.Kind():          decodeAs[RemovePayment],
	UpdatePayment{}.Kind():          decodeAs[UpdatePayment],
	SetRetention{}.Kind():           decodeAs[SetRetention],
	SetTaxIncluded{}.Kind():         decodeAs[SetTaxIncluded],
	SetDocumentType{}.Kind():        decodeAs[SetDocumentType],
	SetCorrection{}.Kind():          decodeAs[SetCorrection],
	SetSourceDocument{}.Kind():      decodeAs[SetSourceDocument],
	SetExternalReference{}.Kind():   decodeAs[SetExternalReference],
	SetReceivedAt{}.Kind():          decodeAs[SetReceivedAt],
	SetAdjustmentMode{}.Kind():      decodeAs[SetAdjustmentMode],
	SetTransferDestination{}.Kind(): decodeAs[SetTransferDestination],
	SetResolution{}.Kind():          decodeAs[SetResolution],
	SetNotes{}.Kind():               decodeAs[SetNotes],
	SetUpdatePrices{}.Kind():        decodeAs[SetUpdatePrices],
	Reset{}.Kind():                  decodeAs[Reset],
}

// DecodeAction parses an action envelope
func DecodeAction(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid action envelope: %w", err)
	}
	decode, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}
	action, err := decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", env.Type, err)
	}
	return action, nil
}

func decodeAs[T Action](raw json.RawMessage) (Action, error) {
	var a T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
	}
	return a, nil
}
