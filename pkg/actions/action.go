package actions

// Action is the backend's discriminator for what happened in a turn. The set
// is closed; anything else is ActionUnknown.
type Action string

const (
	ActionGeneralResponse    Action = "general_response"
	ActionListItems          Action = "list_items"
	ActionAskQuestion        Action = "ask_question"
	ActionRequestInvoiceInfo Action = "request_invoice_info"

	ActionCustomerCreated        Action = "customer_created"
	ActionCustomerExists         Action = "customer_exists"
	ActionCustomerCreationFailed Action = "customer_creation_failed"
	ActionCustomerCreationError  Action = "customer_creation_error"
	ActionInvoiceCreated         Action = "invoice_created"
	ActionInvoiceCreationFailed  Action = "invoice_creation_failed"
	ActionInvoiceCreationError   Action = "invoice_creation_error"
	ActionResetSuccess           Action = "reset_success"
	ActionFileUploaded           Action = "file_uploaded"
	ActionError                  Action = "error"
	ActionCustomerLookupError    Action = "customer_lookup_error"

	ActionUnknown Action = "unknown"
)

var known = map[Action]struct{}{
	ActionGeneralResponse:        {},
	ActionListItems:              {},
	ActionAskQuestion:            {},
	ActionRequestInvoiceInfo:     {},
	ActionCustomerCreated:        {},
	ActionCustomerExists:         {},
	ActionCustomerCreationFailed: {},
	ActionCustomerCreationError:  {},
	ActionInvoiceCreated:         {},
	ActionInvoiceCreationFailed:  {},
	ActionInvoiceCreationError:   {},
	ActionResetSuccess:           {},
	ActionFileUploaded:           {},
	ActionError:                  {},
	ActionCustomerLookupError:    {},
}

// Parse maps a raw action code to the closed enumeration.
func Parse(s string) Action {
	a := Action(s)
	if _, ok := known[a]; ok {
		return a
	}
	return ActionUnknown
}

// PreservesContext reports whether an action leaves the current context
// untouched when the response carries none. These are the mid-flow actions;
// every other action, including unknown ones, clears to language-only.
func (a Action) PreservesContext() bool {
	switch a {
	case ActionGeneralResponse, ActionAskQuestion, ActionRequestInvoiceInfo:
		return true
	default:
		return false
	}
}

func (a Action) String() string {
	return string(a)
}
