package enums

// OrderStatus tracks the lifecycle of a purchase order.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "created"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusFailed:
		return true
	}
	return false
}

// VerificationStatus records the terminal outcome of a payment verification.
type VerificationStatus string

const (
	VerificationStatusCompleted VerificationStatus = "completed"
	VerificationStatusFailed    VerificationStatus = "failed"
)

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationStatusCompleted, VerificationStatusFailed:
		return true
	}
	return false
}

// AccountType is the role attached to an authenticated user.
type AccountType string

const (
	AccountTypeStudent    AccountType = "student"
	AccountTypeInstructor AccountType = "instructor"
	AccountTypeAdmin      AccountType = "admin"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeStudent, AccountTypeInstructor, AccountTypeAdmin:
		return true
	}
	return false
}

// SettlementPath identifies which ingress settled a payment.
type SettlementPath string

const (
	SettlementPathCallback SettlementPath = "callback"
	SettlementPathWebhook  SettlementPath = "webhook"
)
