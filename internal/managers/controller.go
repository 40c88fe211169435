package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/rainevents/internal/controllers/restserver"
	"github.com/chrissnell/rainevents/internal/report"
	"github.com/chrissnell/rainevents/pkg/config"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates a controller manager serving the results API.
// storage may carry an archive, which enables the archived-run routes.
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, registry *report.Registry, storage *StorageManager, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:    ctx,
		wg:     wg,
		logger: logger,
	}

	var archive restserver.Archive
	if storage != nil && storage.Archive() != nil {
		archive = storage.Archive()
	}

	rest, err := restserver.NewController(ctx, wg, rc, registry, archive, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating controller: %v", err)
	}
	cm.controllers = append(cm.controllers, rest)

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %v", err)
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}
