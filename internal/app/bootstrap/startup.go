// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/greencrew/internal/app/store/mongostore"
	"github.com/dalemusser/greencrew/internal/app/sync"
	"github.com/dalemusser/greencrew/internal/app/system/auth"
	"github.com/dalemusser/greencrew/internal/app/system/mailer"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// recorderLimit caps the recent-event buffer exposed at /sync/status.
const recorderLimit = 256

// Runtime bundles the long-lived services built at startup. BuildHandler
// and Shutdown reach them through the package-level runtime variable.
type Runtime struct {
	AuthService *auth.Service
	Controller  *sync.Controller
	Recorder    *sync.Recorder
	Mailer      *mailer.Mailer
}

var runtime Runtime

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the document store, the sync controller, the mailer, and the auth service,
// then binds the controller to auth-state transitions so that signing in
// starts the listener cascade and signing out tears it down.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	st := mongostore.New(deps.MongoDatabase, appCfg.SyncPollInterval, logger)

	recorder := sync.NewRecorder(recorderLimit)
	sink := sync.MultiSink(recorder, sync.LogSink(logger))
	ctrl := sync.NewController(st, sink, logger)

	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)

	authSvc := auth.NewService(deps.MongoDatabase, mail, auth.GoogleConfig{
		ClientID:     appCfg.GoogleClientID,
		ClientSecret: appCfg.GoogleClientSecret,
		RedirectURL:  appCfg.BaseURL + "/login/google/callback",
	}, logger)

	ctrl.Mutations().SetMailer(mail, appCfg.MailFromName)
	ctrl.Initialize(authSvc)

	runtime = Runtime{
		AuthService: authSvc,
		Controller:  ctrl,
		Recorder:    recorder,
		Mailer:      mail,
	}

	logger.Info("sync controller initialized",
		zap.Duration("poll_interval", appCfg.SyncPollInterval),
		zap.Bool("google_oauth", authSvc.GoogleEnabled()))
	return nil
}
