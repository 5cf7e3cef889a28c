package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"p2plend/handler"
	"p2plend/handler/hc"
	"p2plend/service/lending"
	"p2plend/service/notifier"

	"github.com/drone/signal"
	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "run p2plend api server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		memory, _ := cmd.Flags().GetBool("memory")
		events, _ := cmd.Flags().GetInt("events")

		p := providePool()
		recorder := notifier.NewRecorder(events)

		var engine *lending.Engine
		if memory {
			engine = provideEngine(p, lending.WithNotifier(provideNotifier(recorder)))
		} else {
			database := provideDatabase()
			defer database.Close()

			states := provideStateService(database)
			engine = provideEngine(p,
				lending.WithNotifier(provideNotifier(recorder, states)),
				lending.WithCommitHook(states.OnCommit),
			)

			if err := states.Restore(ctx, engine); err != nil {
				log.WithError(err).Fatalln("restore state")
			}
		}

		if err := createMarkets(ctx, engine); err != nil {
			log.WithError(err).Fatalln("create markets")
		}

		mux := chi.NewMux()
		mux.Use(middleware.Recoverer)
		mux.Use(middleware.StripSlashes)
		mux.Use(cors.AllowAll().Handler)
		mux.Use(logger.WithRequestID)
		mux.Use(middleware.Logger)
		mux.Use(middleware.NewCompressor(5).Handler)

		{
			// hc
			mux.Mount("/hc", hc.Handle(rootCmd.Version, func() int {
				return len(engine.Markets())
			}))
		}

		{
			// restful api
			svr := handler.New(provideConfig(), engine, p, recorder)
			mux.Mount("/api", svr.HandleRestAPI())
		}

		port, _ := cmd.Flags().GetInt("port")
		addr := fmt.Sprintf(":%d", port)

		server := &http.Server{
			Addr:    addr,
			Handler: mux,
		}

		ctx, quit := context.WithCancel(ctx)
		workers, err := runWorkers(ctx, engine)
		if err != nil {
			log.WithError(err).Fatalln("start workers")
		}

		done := make(chan struct{}, 1)
		signal.WithContextFunc(ctx, func() {
			quit()

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				logrus.WithError(err).Error("graceful shutdown server failed")
			}

			close(done)
		})

		logrus.Infoln("serve at", addr)
		err = server.ListenAndServe()
		if err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server aborted")
		}

		<-done
		workers.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntP("port", "p", 9000, "server port")
	serverCmd.Flags().Bool("memory", false, "keep the state in memory only")
	serverCmd.Flags().Int("events", 1000, "recent events served by the api")
}
