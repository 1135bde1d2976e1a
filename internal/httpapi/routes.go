package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mesahub/mesa-backend/internal/config"
	"github.com/mesahub/mesa-backend/internal/store"
	"github.com/mesahub/mesa-backend/internal/table"
	"github.com/mesahub/mesa-backend/internal/ws"
)

// API bundles the dependencies the handlers share.
type API struct {
	Store store.Store
	Table *table.Table
	Cfg   *config.Config
	Log   *zap.Logger
}

func SetupRoutes(api *API) http.Handler {
	r := chi.NewRouter()
	r.Use(cors)

	r.Get("/healthz", Healthz)
	r.Get("/ws/{userID}", ws.Handler(api.Table, api.Store, api.Log))

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", api.Login)

		r.Post("/master/characters", api.MasterCreateCharacter)
		r.Delete("/master/characters/{characterID}", api.MasterDeleteCharacter)

		r.Get("/users", api.GetUsers)
		r.Get("/character/{userID}", api.GetCharacter)
		r.Put("/character/{userID}", api.UpdateCharacter)
		r.Put("/character/{userID}/health", api.UpdateHealth)
		r.Post("/character/{userID}/items", api.AddItemToCharacter)
		r.Post("/character/{userID}/abilities", api.AddAbilityToCharacter)

		r.Post("/npcs", api.CreateNPC)
		r.Get("/npcs/{masterID}", api.GetNPCs)
		r.Put("/npcs/{npcID}", api.UpdateNPC)
		r.Delete("/npcs/{npcID}", api.DeleteNPC)

		r.Post("/shared-items", api.CreateSharedItem)
		r.Get("/shared-items", api.GetSharedItems)
		r.Put("/shared-items/{itemID}", api.UpdateSharedItem)
		r.Delete("/shared-items/{itemID}", api.DeleteSharedItem)

		r.Post("/shared-abilities", api.CreateSharedAbility)
		r.Get("/shared-abilities", api.GetSharedAbilities)
		r.Put("/shared-abilities/{abilityID}", api.UpdateSharedAbility)
		r.Delete("/shared-abilities/{abilityID}", api.DeleteSharedAbility)

		r.Post("/master-notes", api.CreateMasterNote)
		r.Get("/master-notes/{masterID}", api.GetMasterNotes)
		r.Put("/master-notes/{noteID}", api.UpdateMasterNote)
		r.Delete("/master-notes/{noteID}", api.DeleteMasterNote)
	})

	return r
}

// cors mirrors the permissive policy the browser client expects in dev.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
