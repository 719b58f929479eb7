package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	exdb "github.com/jelloshooter848/webcash-bitcoin-exchange/db"
	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/config"
	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/engine"
	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/logging"
	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/notify"
	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/refprice"
	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/store"
)

type placeOrderRequest struct {
	Side         string  `json:"side"`             // "buy" | "sell"
	Quantity     float64 `json:"quantity"`         // WC
	DisplayPrice float64 `json:"price_wc_per_sat"` // WC per satoshi
}

type marketOrderRequest struct {
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := exdb.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	st := store.NewPostgres(pool)
	eng := engine.New(st, logger)
	hub := notify.NewHub(logger)
	tracker := refprice.NewTracker(eng, hub, logger)

	r := chi.NewRouter()

	// Hygiene stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	writeProblem := func(w http.ResponseWriter, r *http.Request, code int, title, detail string) {
		reqID := middleware.GetReqID(r.Context())
		w.Header().Set("Content-Type", "application/problem+json")
		w.Header().Set("X-Request-ID", reqID)
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"title":      title,
			"status":     code,
			"detail":     detail,
			"instance":   r.URL.Path,
			"request_id": reqID,
		})
	}

	writeEngineError := func(w http.ResponseWriter, r *http.Request, err error) {
		switch {
		case errors.Is(err, engine.ErrUnauthenticated):
			writeProblem(w, r, http.StatusUnauthorized, "unauthenticated", err.Error())
		case errors.Is(err, engine.ErrInvalidInput), errors.Is(err, engine.ErrInvalidPrice):
			writeProblem(w, r, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, engine.ErrInsufficientLiquidity):
			writeProblem(w, r, http.StatusUnprocessableEntity, "insufficient_liquidity", err.Error())
		case errors.Is(err, engine.ErrOrderNotFound):
			writeProblem(w, r, http.StatusNotFound, "not_found", err.Error())
		default:
			writeProblem(w, r, http.StatusInternalServerError, "engine_error", err.Error())
		}
	}

	writeJSON := func(w http.ResponseWriter, r *http.Request, code int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-ID", middleware.GetReqID(r.Context()))
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}

	// Identity comes from the fronting auth layer; the engine only needs
	// an explicit owner for every operation.
	ownerOf := func(r *http.Request) string { return r.Header.Get("X-User-ID") }

	// All API routes get a request deadline; /ws stays outside the group
	// because the socket outlives any sensible timeout.
	api := r.With(middleware.Timeout(10 * time.Second))

	// POST /orders: place a limit order; may auto-match immediately.
	api.Post("/orders", func(w http.ResponseWriter, r *http.Request) {
		var req placeOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, r, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		side, err := engine.ParseSide(req.Side)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}

		placed, err := eng.PlaceLimit(r.Context(), ownerOf(r), side, req.Quantity, req.DisplayPrice)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}

		hub.Broadcast(notify.Event{Type: "order_placed", Payload: map[string]any{
			"order_id": placed.OrderID,
			"side":     string(side),
			"quantity": req.Quantity,
		}})
		if placed.Match.Matched {
			hub.Broadcast(notify.Event{Type: "trades_matched", Payload: map[string]any{
				"fills":            placed.Match.Fills,
				"total_wc":         placed.Match.TotalWC,
				"total_btc":        placed.Match.TotalBTC,
				"avg_wc_per_sat":   placed.Match.AvgDisplayPrice(),
				"trigger_order_id": placed.OrderID,
			}})
		}
		tracker.Refresh(r.Context())

		w.Header().Set("Location", "/orders/"+placed.OrderID)
		writeJSON(w, r, http.StatusCreated, map[string]any{
			"order_id":       placed.OrderID,
			"matched":        placed.Match.Matched,
			"fills":          placed.Match.Fills,
			"total_wc":       placed.Match.TotalWC,
			"total_btc":      placed.Match.TotalBTC,
			"avg_wc_per_sat": placed.Match.AvgDisplayPrice(),
		})
	})

	// DELETE /orders/{id}
	api.Delete("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ok, err := eng.Cancel(r.Context(), id, ownerOf(r))
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		if !ok {
			writeProblem(w, r, http.StatusNotFound, "not_found", "no cancellable order with that id")
			return
		}
		hub.Broadcast(notify.Event{Type: "order_cancelled", Payload: map[string]any{"order_id": id}})
		tracker.Refresh(r.Context())
		w.Header().Set("X-Request-ID", middleware.GetReqID(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})

	// POST /market: execute a market order against the resting book.
	api.Post("/market", func(w http.ResponseWriter, r *http.Request) {
		var req marketOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, r, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		side, err := engine.ParseSide(req.Side)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}

		res, err := eng.ExecuteMarket(r.Context(), ownerOf(r), side, req.Quantity)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}

		hub.Broadcast(notify.Event{Type: "market_executed", Payload: map[string]any{
			"side":      string(side),
			"quantity":  req.Quantity,
			"total_btc": res.TotalBTC,
			"fills":     len(res.Fills),
		}})
		tracker.Refresh(r.Context())

		writeJSON(w, r, http.StatusOK, map[string]any{
			"side":      string(side),
			"quantity":  req.Quantity,
			"total_btc": res.TotalBTC,
			"fills":     len(res.Fills),
		})
	})

	// GET /price: current reference price from the open book.
	api.Get("/price", func(w http.ResponseWriter, r *http.Request) {
		price, err := eng.CurrentPrice(r.Context())
		if errors.Is(err, engine.ErrNoLiquidity) {
			writeJSON(w, r, http.StatusOK, map[string]any{"no_liquidity": true})
			return
		}
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		display, _ := engine.ToDisplayPrice(price)
		writeJSON(w, r, http.StatusOK, map[string]any{
			"price_btc":        price,
			"price_wc_per_sat": display,
		})
	})

	// GET /book: open orders, newest first.
	api.Get("/book", func(w http.ResponseWriter, r *http.Request) {
		orders, err := eng.OpenBook(r.Context())
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		views := make([]map[string]any, 0, len(orders))
		for i := range orders {
			o := &orders[i]
			views = append(views, map[string]any{
				"id":               o.ID,
				"side":             string(o.Side),
				"quantity_wc":      o.Quantity,
				"price_btc":        o.UnitPrice,
				"price_wc_per_sat": o.DisplayPrice(),
				"total_btc":        o.Quantity * o.UnitPrice,
				"status":           string(o.Status),
				"created_at":       o.CreatedAt,
			})
		}
		writeJSON(w, r, http.StatusOK, views)
	})

	// GET /trades: recent trades, newest first.
	api.Get("/trades", func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 500 {
				writeProblem(w, r, http.StatusBadRequest, "validation_error", "limit must be 1-500")
				return
			}
			limit = n
		}
		trades, err := st.RecentTrades(r.Context(), limit)
		if err != nil {
			writeProblem(w, r, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
		views := make([]map[string]any, 0, len(trades))
		for _, t := range trades {
			views = append(views, map[string]any{
				"id":         t.ID,
				"buyer_id":   t.BuyerID,
				"seller_id":  t.SellerID,
				"amount_wc":  t.AmountWC.String(),
				"total_btc":  t.TotalBTC.String(),
				"status":     t.Status,
				"created_at": t.CreatedAt,
			})
		}
		writeJSON(w, r, http.StatusOK, views)
	})

	// GET /ws: book change notifications.
	r.Get("/ws", hub.ServeWS)

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "X-User-ID"},
	}).Handler(r)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("server stopped")
}
