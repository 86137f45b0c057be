package modbusrelay

import (
	"context"
)

// ProcessPDUCallback answers a request PDU. A nil response means the request
// stays unanswered.
type ProcessPDUCallback func(pdu PDU) *PDU

type TransportHandler interface {
	Start(ctx context.Context, processPDU ProcessPDUCallback) (err error)
	Stop() error
	Description() string
}
