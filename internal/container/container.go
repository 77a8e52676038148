package container

import (
	"time"

	"go.uber.org/zap"

	app "equipment-guard/internal/application"
	"equipment-guard/internal/domain/port"
)

// Deps внешние зависимости сервисов приложения.
type Deps struct {
	UserRepo   port.UserRepository
	Camera     port.Camera
	Classifier port.Classifier
	Publisher  port.EventPublisher // может быть nil
	LLM        port.LanguageModel  // может быть nil
	Monitor    app.MonitorOptions
	Interval   time.Duration
	Logger     *zap.Logger
}

type Container struct {
	UserService       *app.UserService
	Monitor           *app.FaultMonitor
	InspectionService *app.InspectionService
	AdviceService     *app.AdviceService
}

func New(deps Deps) *Container {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	userService := app.NewUserService(deps.UserRepo)
	monitor := app.NewFaultMonitor(deps.Monitor)
	inspectionService := app.NewInspectionService(
		deps.Camera,
		deps.Classifier,
		monitor,
		deps.Publisher,
		logger.Named("inspection"),
		deps.Interval,
	)
	adviceService := app.NewAdviceService(inspectionService, deps.LLM, logger.Named("advice"))

	return &Container{
		UserService:       userService,
		Monitor:           monitor,
		InspectionService: inspectionService,
		AdviceService:     adviceService,
	}
}
