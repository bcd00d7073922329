package server

import (
	"github.com/gdprscanner/gdprscan/internal/config"
	"github.com/gdprscanner/gdprscan/internal/logging"
)

// Config holds construction-time settings for the Server.
type Config struct {
	AppConfig *config.Config
	Logger    logging.Logger
}
