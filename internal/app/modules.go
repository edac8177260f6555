package app

import (
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/modules/concat"
	"github.com/vk/assetgrid/modules/imagemin"
	"github.com/vk/assetgrid/modules/sass"
	"github.com/vk/assetgrid/modules/sassdoc"
	"github.com/vk/assetgrid/modules/uglify"
	"github.com/vk/assetgrid/modules/watch"
)

// coreModules is the definitive list of all tasks that are compiled into
// the assetgrid binary.
var coreModules = []registry.Module{
	&sass.Module{},
	&sassdoc.Module{},
	&concat.Module{},
	&uglify.Module{},
	&imagemin.Module{},
	&watch.Module{},
}
