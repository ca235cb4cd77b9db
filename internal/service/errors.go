package service

import (
	"errors"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/client"
)

// Messages returned to the billing host
const (
	MsgSquadNotSet        = "Product Internal Squad ID is not set."
	MsgCreateFirst        = "Service data not found. Create account first."
	MsgServiceDataMissing = "Service data not found."
	MsgNoServiceData      = "No service data."
	MsgAlreadyProvisioned = "Service is already provisioned."
	MsgHostnameNotSet     = "Server hostname is not set."
	MsgNoUserUUID         = "API did not return user UUID."
	MsgNotProvisioned     = "Not provisioned yet."
	MsgLoadFailed         = "Could not load subscription data."
	MsgClientNotReady     = "Service not provisioned yet."
	MsgInvalidServerID    = "Invalid serverid"
)

// ValidationError reports missing or invalid local configuration
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotProvisionedError is returned when an operation needs a service record
// that does not exist
type NotProvisionedError struct {
	ServiceID int
	Message   string
}

func (e *NotProvisionedError) Error() string { return e.Message }

// errorMessage is the text shown to the host. Panel errors keep the panel's
// own wording.
func errorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
