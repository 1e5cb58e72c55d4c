package api

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/svyatogor45/linekeeper/internal/api/handlers"
	"github.com/svyatogor45/linekeeper/internal/api/middleware"
	"github.com/svyatogor45/linekeeper/internal/service"
	"github.com/svyatogor45/linekeeper/internal/wsadmin"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Scheduler           handlers.SchedulerController
	NotificationService *service.NotificationService
	SettingsService     *service.SettingsService
	BlacklistService    *service.BlacklistService
	Hub                 *wsadmin.Hub

	// AdminUsername/AdminPasswordHash gate the admin API behind HTTP Basic
	// Auth (middleware.Auth). Leaving either empty disables every /api/v1
	// route with a 403 rather than serving it unauthenticated.
	AdminUsername     string
	AdminPasswordHash string
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /pairings            GET    - текущие сопоставленные события
//	├── /lines               GET    - состояния Line Controller по линиям
//	├── /positions           GET    - агрегаты Position Store по линиям
//	├── /stats               GET    - счетчики последнего завершенного цикла
//	├── /overrides           POST   - зарегистрировать ручное сопоставление
//	├── /overrides/{id}      DELETE - снять ручное сопоставление
//	├── /scheduler/start     POST   - возобновить выполнение циклов
//	├── /scheduler/stop      POST   - приостановить выполнение циклов
//	├── /excluded-events/
//	│   ├── GET    / - список исключенных событий
//	│   ├── POST   / - исключить событие
//	│   └── DELETE /{reference_event_id} - вернуть событие в репликацию
//	├── /notifications/
//	│   ├── GET    / - получить уведомления
//	│   ├── GET    /{line_id} - уведомления по линии
//	│   └── DELETE / - очистить журнал
//	└── /settings/
//	    ├── GET   / - получить настройки
//	    └── PATCH / - обновить настройки
//
// /ws/admin  - WebSocket для live push (line updates, cycle summaries, notifications)
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (для /api/v1, HTTP Basic Auth против bcrypt-хеша оператора)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	var schedulerHandler *handlers.SchedulerHandler
	if deps != nil && deps.Scheduler != nil {
		schedulerHandler = handlers.NewSchedulerHandler(deps.Scheduler)
	}

	var settingsHandler *handlers.SettingsHandler
	if deps != nil && deps.SettingsService != nil {
		settingsHandler = handlers.NewSettingsHandler(deps.SettingsService)
	}

	var notificationHandler *handlers.NotificationHandler
	if deps != nil && deps.NotificationService != nil {
		notificationHandler = handlers.NewNotificationHandler(deps.NotificationService)
	}

	var blacklistHandler *handlers.BlacklistHandler
	if deps != nil && deps.BlacklistService != nil {
		blacklistHandler = handlers.NewBlacklistHandler(deps.BlacklistService)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	if deps != nil {
		api.Use(middleware.Auth(deps.AdminUsername, deps.AdminPasswordHash))
	}

	if schedulerHandler != nil {
		api.HandleFunc("/pairings", schedulerHandler.GetPairings).Methods("GET")
		api.HandleFunc("/lines", schedulerHandler.GetLines).Methods("GET")
		api.HandleFunc("/positions", schedulerHandler.GetPositions).Methods("GET")
		api.HandleFunc("/stats", schedulerHandler.GetStats).Methods("GET")
		api.HandleFunc("/overrides", schedulerHandler.AddOverride).Methods("POST")
		api.HandleFunc("/overrides/{reference_event_id}", schedulerHandler.RemoveOverride).Methods("DELETE")
		api.HandleFunc("/scheduler/start", schedulerHandler.Start).Methods("POST")
		api.HandleFunc("/scheduler/stop", schedulerHandler.Stop).Methods("POST")
	}

	if blacklistHandler != nil {
		api.HandleFunc("/excluded-events", blacklistHandler.GetExcludedEvents).Methods("GET")
		api.HandleFunc("/excluded-events", blacklistHandler.ExcludeEvent).Methods("POST")
		api.HandleFunc("/excluded-events/{reference_event_id}", blacklistHandler.IncludeEvent).Methods("DELETE")
	}

	if notificationHandler != nil {
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods("DELETE")
		api.HandleFunc("/notifications/{line_id}", func(w http.ResponseWriter, r *http.Request) {
			notificationHandler.GetByLineID(w, r, mux.Vars(r)["line_id"])
		}).Methods("GET")
	}

	if settingsHandler != nil {
		api.HandleFunc("/settings", settingsHandler.GetSettings).Methods("GET")
		api.HandleFunc("/settings", settingsHandler.UpdateSettings).Methods("PATCH")
	}

	// WebSocket route для live push (line updates, cycle summaries, notifications)
	if deps != nil && deps.Hub != nil {
		router.HandleFunc("/ws/admin", func(w http.ResponseWriter, r *http.Request) {
			wsadmin.ServeWS(deps.Hub, w, r)
		}).Methods("GET")
	}

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus metrics endpoint, read by the operator's dashboard (spec §7).
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// pprof endpoints, gated behind DEBUG_USERNAME/DEBUG_PASSWORD.
	debug := router.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(middleware.DebugAuth)

	debug.HandleFunc("/", pprof.Index)
	debug.HandleFunc("/cmdline", pprof.Cmdline)
	debug.HandleFunc("/profile", pprof.Profile)
	debug.HandleFunc("/symbol", pprof.Symbol)
	debug.HandleFunc("/trace", pprof.Trace)

	debug.HandleFunc("/heap", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("heap").ServeHTTP(w, r)
	})
	debug.HandleFunc("/goroutine", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("goroutine").ServeHTTP(w, r)
	})
	debug.HandleFunc("/block", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("block").ServeHTTP(w, r)
	})
	debug.HandleFunc("/threadcreate", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("threadcreate").ServeHTTP(w, r)
	})
	debug.HandleFunc("/mutex", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("mutex").ServeHTTP(w, r)
	})
	debug.HandleFunc("/allocs", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("allocs").ServeHTTP(w, r)
	})

	router.HandleFunc("/debug/runtime", func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{`))
		w.Write([]byte(`"goroutines":` + itoa(runtime.NumGoroutine()) + `,`))
		w.Write([]byte(`"heap_alloc_mb":` + ftoa(float64(m.HeapAlloc)/1024/1024) + `,`))
		w.Write([]byte(`"heap_sys_mb":` + ftoa(float64(m.HeapSys)/1024/1024) + `,`))
		w.Write([]byte(`"num_gc":` + itoa(int(m.NumGC)) + `,`))
		w.Write([]byte(`"gc_pause_total_ms":` + ftoa(float64(m.PauseTotalNs)/1e6)))
		w.Write([]byte(`}`))
	}).Methods("GET")

	return router
}

// Вспомогательные функции для JSON без fmt
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	pos := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		pos--
		b[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		b[pos] = '-'
	}
	return string(b[pos:])
}

func ftoa(f float64) string {
	i := int(f * 100)
	whole := i / 100
	frac := i % 100
	if frac < 0 {
		frac = -frac
	}
	fracStr := itoa(frac)
	if len(fracStr) == 1 {
		fracStr = "0" + fracStr
	}
	return itoa(whole) + "." + fracStr
}
