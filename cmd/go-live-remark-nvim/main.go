package main

import (
	"go-live-remark/internal/host"
	"log"

	"github.com/neovim/go-client/nvim/plugin"
)

// Set up the connection to Neovim, register the remark commands and
// autocmds, then serve requests until Neovim closes the channel.
func main() {
	plugin.Main(func(p *plugin.Plugin) error {
		log.Println("[go-live-remark] registering handlers")
		return host.Register(p)
	})
}
