package main

import (
	"log/slog"
	"os"

	"github.com/trebla915/web1111-sub002/internal/app"
)

func main() {
	err := app.Run()
	if err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
