package datasync

// OperationType is the canonical lifecycle classification of a carrier
// datasync operation.
type OperationType string

const (
	OperationSubscription   OperationType = "SUBSCRIPTION"
	OperationRenewal        OperationType = "RENEWAL"
	OperationUnsubscription OperationType = "UNSUBSCRIPTION"
	OperationUnknown        OperationType = "UNKNOWN"
)

// operationTable maps raw carrier operation ids to canonical types. Codes the
// carrier adds without notice classify as UNKNOWN and flow down the generic
// audit path.
var operationTable = map[string]OperationType{
	"1": OperationSubscription,
	"2": OperationUnsubscription,
	"3": OperationRenewal,
}

// Classify resolves a raw operation id; unmapped ids yield UNKNOWN, never an
// error.
func Classify(operationID string) OperationType {
	if t, ok := operationTable[operationID]; ok {
		return t
	}
	return OperationUnknown
}

// Request is the raw carrier datasync webhook body. The carrier sends every
// field as a string.
type Request struct {
	SeqID            string `json:"seqId" validate:"required"`
	ServiceID        string `json:"serviceId" validate:"required"`
	ProductID        string `json:"productId" validate:"required"`
	UserID           string `json:"userId" validate:"required"`
	UpdateType       string `json:"updateType" validate:"required"`
	ChargeAmount     string `json:"chargeAmount"`
	ChargeCurrency   string `json:"chargeCurrency"`
	ValidityDays     string `json:"validityDays"`
	EffectiveTime    string `json:"effectiveTime"`
	ExpiryTime       string `json:"expiryTime"`
	UpdateTime       string `json:"updateTime"`
	UpdateChannel    string `json:"updateChannel"`
	UpdateReason     string `json:"updateReason"`
	FirstTimePayment string `json:"firstTimePayment"`
}
