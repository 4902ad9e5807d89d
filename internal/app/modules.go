package app

import (
	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/modules/artifact"
	"github.com/vk/stagehandgo/modules/blobstore"
	"github.com/vk/stagehandgo/modules/cache"
	"github.com/vk/stagehandgo/modules/cache_purge"
	"github.com/vk/stagehandgo/modules/checkout"
	"github.com/vk/stagehandgo/modules/exec_fix"
	"github.com/vk/stagehandgo/modules/report"
	"github.com/vk/stagehandgo/modules/setup_runtime"
	"github.com/vk/stagehandgo/modules/shell"
	"github.com/vk/stagehandgo/modules/status_emit"
	"github.com/vk/stagehandgo/modules/statushub"
	"github.com/vk/stagehandgo/modules/webhook"
)

// coreModules is the definitive list of all modules that are compiled into
// the stagehandgo binary.
var coreModules = []registry.Module{
	&artifact.Module{},
	&blobstore.Module{},
	&cache.Module{},
	&cache_purge.Module{},
	&checkout.Module{},
	&exec_fix.Module{},
	&report.Module{},
	&setup_runtime.Module{},
	&shell.Module{},
	&status_emit.Module{},
	&statushub.Module{},
	&webhook.Module{},
}
