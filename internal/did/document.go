// Package did serializes peaq DID documents in protobuf wire format.
package did

import (
	"encoding/hex"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the peaq Document message.
const (
	docFieldID                  protowire.Number = 1
	docFieldController          protowire.Number = 2
	docFieldVerificationMethods protowire.Number = 3
	docFieldSignature           protowire.Number = 4
	docFieldServices            protowire.Number = 5
)

// Field numbers of the Service message.
const (
	svcFieldID              protowire.Number = 1
	svcFieldType            protowire.Number = 2
	svcFieldServiceEndpoint protowire.Number = 3
	svcFieldData            protowire.Number = 4
)

const (
	ServiceEmailSignature = "emailSignature"
	ServiceOwner          = "owner"
)

type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint,omitempty"`
	Data            string `json:"data,omitempty"`
}

type Document struct {
	ID         string    `json:"id"`
	Controller string    `json:"controller"`
	Services   []Service `json:"services"`
}

// Identifier returns did:peaq:<address>.
func Identifier(address string) string {
	return "did:peaq:" + address
}

// NewMachineDocument describes machineAddress, attests the email signature
// issued by get-real and records ownerAddress as the controlling EOA.
func NewMachineDocument(machineAddress, emailSignature, ownerAddress string) *Document {
	id := Identifier(machineAddress)
	return &Document{
		ID:         id,
		Controller: id,
		Services: []Service{
			{ID: "#" + ServiceEmailSignature, Type: ServiceEmailSignature, Data: emailSignature},
			{ID: "#" + ServiceOwner, Type: ServiceOwner, Data: ownerAddress},
		},
	}
}

// Marshal encodes the document. Empty strings are omitted as in proto3.
func (d *Document) Marshal() []byte {
	var b []byte
	b = appendString(b, docFieldID, d.ID)
	b = appendString(b, docFieldController, d.Controller)
	for _, svc := range d.Services {
		b = protowire.AppendTag(b, docFieldServices, protowire.BytesType)
		b = protowire.AppendBytes(b, svc.marshal())
	}
	return b
}

// Hex is the lowercase hex text of Marshal, the form stored on chain.
func (d *Document) Hex() string {
	return hex.EncodeToString(d.Marshal())
}

func (s Service) marshal() []byte {
	var b []byte
	b = appendString(b, svcFieldID, s.ID)
	b = appendString(b, svcFieldType, s.Type)
	b = appendString(b, svcFieldServiceEndpoint, s.ServiceEndpoint)
	b = appendString(b, svcFieldData, s.Data)
	return b
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// Unmarshal decodes a document, skipping fields this package does not model.
func Unmarshal(b []byte) (*Document, error) {
	doc := &Document{}
	err := walk(b, func(num protowire.Number, v []byte) error {
		switch num {
		case docFieldID:
			doc.ID = string(v)
		case docFieldController:
			doc.Controller = string(v)
		case docFieldServices:
			svc, err := unmarshalService(v)
			if err != nil {
				return err
			}
			doc.Services = append(doc.Services, svc)
		case docFieldVerificationMethods, docFieldSignature:
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UnmarshalHex decodes the hex text produced by Hex.
func UnmarshalHex(s string) (*Document, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("did document hex: %w", err)
	}
	return Unmarshal(raw)
}

func unmarshalService(b []byte) (Service, error) {
	var svc Service
	err := walk(b, func(num protowire.Number, v []byte) error {
		switch num {
		case svcFieldID:
			svc.ID = string(v)
		case svcFieldType:
			svc.Type = string(v)
		case svcFieldServiceEndpoint:
			svc.ServiceEndpoint = string(v)
		case svcFieldData:
			svc.Data = string(v)
		}
		return nil
	})
	return svc, err
}

// walk visits length-delimited fields and skips everything else.
func walk(b []byte, fn func(protowire.Number, []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("did document: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("did document: %w", protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return fmt.Errorf("did document: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(num, v); err != nil {
			return err
		}
	}
	return nil
}
