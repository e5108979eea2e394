package app

import (
	"github.com/vk/dagflow/internal/registry"
	"github.com/vk/dagflow/modules/command"
	"github.com/vk/dagflow/modules/http_request"
	"github.com/vk/dagflow/modules/s3"
	"github.com/vk/dagflow/modules/socketio"
	"github.com/vk/dagflow/modules/transform"
)

// coreModules is the definitive list of all modules that are compiled into
// the dagflow binary.
var coreModules = []registry.Module{
	&command.Module{},
	&http_request.Module{},
	&s3.Module{},
	&socketio.Module{},
	&transform.Module{},
}
