package di

import (
	"neuronote/application/commands/bus"
	"neuronote/application/ports"
	querybus "neuronote/application/queries/bus"
	"neuronote/application/services"
	"neuronote/infrastructure/config"
	"neuronote/infrastructure/persistence/sqlstore"
	"neuronote/infrastructure/repair"
	"neuronote/interfaces/http/rest"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	DB              *sqlstore.DB
	MemoryRepo      ports.MemoryRepository
	RepairQueue     ports.IndexRepairQueue
	Index           ports.SemanticIndex
	EventBus        ports.EventBus
	Metrics         ports.Metrics
	Cache           *RistrettoCache
	IndexSync       *services.IndexSync
	CommandBus      *bus.CommandBus
	QueryBus        *querybus.QueryBus
	RepairProcessor *repair.Processor
	Router          *rest.Router
}
