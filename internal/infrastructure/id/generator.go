package id

import (
	"strings"

	"github.com/google/uuid"
)

const orderNumberPrefix = "SKY-"

type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator { return &UUIDGenerator{} }

func (*UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// OrderNumber produces a customer-facing unique order reference.
func (*UUIDGenerator) OrderNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return orderNumberPrefix + strings.ToUpper(raw[:12])
}
