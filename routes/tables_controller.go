package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/taste-review/app"
	"github.com/mbolis/taste-review/httpx"
	"github.com/mbolis/taste-review/log"
	"github.com/mbolis/taste-review/model"
	"github.com/mbolis/taste-review/routes/middlewares"
	"github.com/mbolis/taste-review/store"
)

func ListTables(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tables, err := app.Tables.List(r.Context(), middlewares.RestaurantID(r))
		if err != nil {
			httpx.LogInternalError(w, "db.get_tables", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"tables": tables,
		})
	}
}

// CreateTable adds a table; its QR identifier is derived from the name.
func CreateTable(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := model.Table{}
		err := render.DecodeJSON(r.Body, &table)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := table.Validate(); err != nil {
			invalid(w, r, "create_table.validate", err)
			return
		}

		created, err := app.Tables.Create(r.Context(), middlewares.RestaurantID(r), table.Name)
		switch {
		case errors.Is(err, store.ErrInvalidName):
			invalid(w, r, "create_table.identifier", errors.New("Nome tavolo non valido"))
			return
		case errors.Is(err, store.ErrConflict):
			httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "db.insert_table.conflict",
				"Esiste già un tavolo con questo identificativo (%s)", created.Identifier)
			return
		case err != nil:
			httpx.LogInternalError(w, "db.insert_table", err)
			return
		}
		log.WithFields(log.Fields{"table": created.Identifier}).Info("table created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	}
}

func DeleteTable(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableId := chi.URLParam(r, "id")

		err := app.Tables.Delete(r.Context(), middlewares.RestaurantID(r), tableId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "delete_table", tableId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.delete_table", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
