package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"homeease/internal/app/commands"
	"homeease/internal/app/dto"
	ProviderApp "homeease/internal/app/handlers/provider"
	"homeease/internal/app/queries"
	domainuser "homeease/internal/domain/user"
)

type ProviderHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h ProviderHandler) Ledger(c *gin.Context) {
	if _, ok := requireRole(c, ""); !ok {
		return
	}
	result, err := queries.Ask[ProviderApp.GetLedgerQuery, dto.LedgerSnapshot](c.Request.Context(), h.Queries, ProviderApp.GetLedgerQuery{
		ProviderID: c.Param("id"),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ProviderHandler) RecomputeLedger(c *gin.Context) {
	if _, ok := requireRole(c, string(domainuser.RoleAdmin)); !ok {
		return
	}
	cmd := ProviderApp.RecomputeLedgerCommand{ProviderID: c.Param("id")}
	result, err := commands.Dispatch[ProviderApp.RecomputeLedgerCommand, *ProviderApp.RecomputeLedgerResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ProviderHTTP = ProviderHandler{}
