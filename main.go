package main

import (
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
)

//go:embed frontend/*
var assets embed.FS

func main() {
	app := NewApp()

	if err := wails.Run(appOptions(app)); err != nil {
		log.Fatal(err)
	}
}

// appOptions builds the window from the loaded config
func appOptions(app *App) *options.App {
	w := app.window
	return &options.App{
		Title:     w.Title,
		Width:     w.Width,
		Height:    w.Height,
		MinWidth:  w.MinWidth,
		MinHeight: w.MinHeight,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: mac.TitleBarDefault(),
			About: &mac.AboutInfo{
				Title:   w.Title,
				Message: "Routing around barriers and drive-time service areas",
			},
		},
		Windows: &windows.Options{
			DisableWindowIcon: false,
		},
		Linux: &linux.Options{
			ProgramName:      w.Title,
			WebviewGpuPolicy: linux.WebviewGpuPolicyOnDemand,
		},
	}
}
