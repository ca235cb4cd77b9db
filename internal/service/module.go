package service

import (
	"context"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/client"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

// Module is the callback surface the billing host invokes. Every method
// reports failure through its return value.
type Module interface {
	MetaData() models.MetaData
	ConfigOptions(ctx context.Context) []models.ConfigOption
	AdminCustomButtons() []models.CustomButton

	CreateAccount(ctx context.Context, params models.Params) models.Result
	SuspendAccount(ctx context.Context, params models.Params) models.Result
	UnsuspendAccount(ctx context.Context, params models.Params) models.Result
	TerminateAccount(ctx context.Context, params models.Params) models.Result
	ChangePackage(ctx context.Context, params models.Params) models.Result
	TestConnection(ctx context.Context, params models.Params) models.TestConnectionResult

	SyncStatus(ctx context.Context, params models.Params) models.Result
	ResetTraffic(ctx context.Context, params models.Params) models.Result
	ClearIps(ctx context.Context, params models.Params) models.Result

	AdminServicesTabFields(ctx context.Context, params models.Params) models.Fields
	ClientArea(ctx context.Context, params models.Params) models.ClientArea
}

// PanelAPI is the subset of the panel client the orchestrator uses
type PanelAPI interface {
	ValidateCredentials(ctx context.Context) error
	ListGroups(ctx context.Context) ([]client.Squad, error)
	CreateUser(ctx context.Context, payload map[string]interface{}) (*client.User, error)
	GetUser(ctx context.Context, uuidOrEmail string) (*client.User, error)
	UpdateUser(ctx context.Context, uuid string, payload map[string]interface{}) error
	DeleteUser(ctx context.Context, uuid string) error
	GetTraffic(ctx context.Context, uuidOrEmail string) (*client.Traffic, error)
	ResetTraffic(ctx context.Context, uuid string) error
	ListOnline(ctx context.Context) ([]client.OnlineUser, error)
	LastOnlineMap(ctx context.Context) (map[string]int64, error)
	ClearClientAccessState(ctx context.Context, uuidOrEmail string) error
	BaseURL() string
}

// ClientFactory builds a panel client for one resolved connection
type ClientFactory func(opts client.Options) PanelAPI

// NewPanelClient is the production ClientFactory
func NewPanelClient(opts client.Options) PanelAPI {
	return client.NewRemnawaveClient(opts)
}

// ServerConfigStore holds per-server connection overrides
type ServerConfigStore interface {
	Get(ctx context.Context, serverID int) (*models.ServerConfig, error)
	GetPort(ctx context.Context, serverID int) (*int, error)
	GetBasePath(ctx context.Context, serverID int) (*string, error)
	GetSubDomain(ctx context.Context, serverID int) (*string, error)
	GetSubPort(ctx context.Context, serverID int) (*int, error)
	GetSubURIPath(ctx context.Context, serverID int) (*string, error)
	FindByHostname(ctx context.Context, hostname string) (*models.ServerConfig, error)
	List(ctx context.Context) ([]models.ServerConfig, error)
	SetHostname(ctx context.Context, serverID int, hostname string) error
	SetPortAndBasePath(ctx context.Context, serverID int, port *int, basePath string) error
	SetSubscriptionSettings(ctx context.Context, serverID int, subDomain string, subPort *int, subURIPath string) error
}

// ServiceDataStore links services to remote users. Get returns nil, nil
// when the service is not provisioned.
type ServiceDataStore interface {
	Save(ctx context.Context, serviceID int, userUUID, clientEmail string, squadID *string) error
	Get(ctx context.Context, serviceID int) (*models.ServiceData, error)
	Delete(ctx context.Context, serviceID int) error
}

type CallLogger interface {
	LogAction(ctx context.Context, serviceID, serverID int, action, status, message string, request map[string]interface{}) error
}

type LifecycleRecorder interface {
	ObserveLifecycle(action string, ok bool)
}
