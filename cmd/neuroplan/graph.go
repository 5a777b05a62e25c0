package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/metalagman/neuroplan/internal/web"
)

func graphCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Serve the task graph view",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager()
			if err != nil {
				return err
			}
			server, err := web.NewServer(mgr)
			if err != nil {
				return err
			}
			listen := addr
			if listen == "" {
				listen = cfg.Web.Addr
			}
			fmt.Printf("Serving task graph on http://localhost%s\n", listen)
			return http.ListenAndServe(listen, server.Routes())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config web.addr)")
	return cmd
}
