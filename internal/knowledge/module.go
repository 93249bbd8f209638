package knowledge

import (
	apphttp "sdr_assistant_backend/internal/http"
)

type Module struct {
	handler *Handler
}

func NewModule(svc *Service, indexes ...IndexStatus) *Module {
	return &Module{handler: NewHandler(svc, indexes...)}
}

func (m *Module) Name() string {
	return "knowledge"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/knowledge")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
