package main

import (
	"encoding/json"
	"io/ioutil"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/sagernet/serve/extensions/browser"
	"github.com/sagernet/serve/extensions/fileserver"
	"github.com/sagernet/serve/extensions/livereload"
	E "github.com/sagernet/sing/common/exceptions"
	M "github.com/sagernet/sing/common/metadata"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type Flags struct {
	Listen     string `json:"listen"`
	Root       string `json:"root"`
	LiveReload bool   `json:"live_reload"`
	NoBrowser  bool   `json:"no_browser"`
	LogLevel   string `json:"log_level"`
	ConfigFile string
}

func main() {
	f := new(Flags)

	command := &cobra.Command{
		Use:   "serve",
		Short: "local static file server for development",
		Run: func(cmd *cobra.Command, args []string) {
			run(cmd, f)
		},
	}
	bindFlags(command, f)
	err := command.Execute()
	if err != nil {
		logrus.Fatal(err)
	}
}

func bindFlags(command *cobra.Command, f *Flags) {
	command.Flags().StringVarP(&f.Listen, "listen", "l", "0.0.0.0:8000", "Set the listen address.")
	command.Flags().StringVarP(&f.Root, "root", "d", "", "Set the served directory. Defaults to the directory containing this executable.")
	command.Flags().BoolVarP(&f.LiveReload, "reload", "r", false, "Reload open tabs when files under the served directory change.")
	command.Flags().BoolVar(&f.NoBrowser, "no-browser", false, "Do not open the default browser.")
	command.Flags().StringVarP(&f.LogLevel, "log-level", "L", "info", "Set the log level.")
	command.Flags().StringVarP(&f.ConfigFile, "config", "c", "", "Use a configuration file.")
}

func run(cmd *cobra.Command, f *Flags) {
	if f.ConfigFile != "" {
		err := readConfig(cmd, f)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	if f.LogLevel != "" {
		level, err := logrus.ParseLevel(f.LogLevel)
		if err != nil {
			logrus.Fatal("unknown log level ", f.LogLevel)
		}
		logrus.SetLevel(level)
	}

	if f.Root == "" {
		executable, err := os.Executable()
		if err != nil {
			logrus.Fatal(E.Cause(err, "locate executable"))
		}
		f.Root = filepath.Dir(executable)
	}

	bind := M.ParseSocksaddr(f.Listen)
	if !bind.Addr.IsValid() {
		logrus.Fatal("invalid listen address ", f.Listen)
	}

	static, err := fileserver.Static(f.Root)
	if err != nil {
		logrus.Fatal(err)
	}

	handler := static
	var reloader *livereload.Reloader
	mux := http.NewServeMux()
	if f.LiveReload {
		reloader, err = livereload.New(f.Root)
		if err != nil {
			logrus.Fatal(err)
		}
		handler = livereload.Inject(handler)
		mux.Handle(livereload.Endpoint, reloader)
	}
	mux.Handle("/", handler)

	server, err := fileserver.New(fileserver.Options{
		Bind:    bind.AddrPort(),
		Handler: fileserver.CORSHandler(mux),
	})
	if err != nil {
		logrus.Fatal(err)
	}
	err = server.Start()
	if err != nil {
		logrus.Fatal(E.Cause(err, "start server"))
	}

	url := serverURL(server.Addr())
	logrus.Info("serving ", f.Root, " at ", url)
	logrus.Info("press Ctrl+C to stop the server")
	if !f.NoBrowser {
		logrus.Info("opening browser")
		browser.Open(url)
	}

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
	<-osSignals

	if reloader != nil {
		reloader.Close()
	}
	server.Close()
	logrus.Info("server stopped")
}

// serverURL reports the bound port, not the configured one, so listening
// on port 0 opens the right tab.
func serverURL(addr net.Addr) string {
	return "http://localhost:" + strconv.Itoa(addr.(*net.TCPAddr).Port)
}

func readConfig(cmd *cobra.Command, f *Flags) error {
	content, err := ioutil.ReadFile(f.ConfigFile)
	if err != nil {
		return E.Cause(err, "read config file")
	}
	config := new(Flags)
	err = json.Unmarshal(content, config)
	if err != nil {
		return E.Cause(err, "parse config file")
	}
	if config.Listen != "" && !cmd.Flags().Changed("listen") {
		f.Listen = config.Listen
	}
	if config.Root != "" && !cmd.Flags().Changed("root") {
		f.Root = config.Root
	}
	if config.LiveReload && !cmd.Flags().Changed("reload") {
		f.LiveReload = true
	}
	if config.NoBrowser && !cmd.Flags().Changed("no-browser") {
		f.NoBrowser = true
	}
	if config.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		f.LogLevel = config.LogLevel
	}
	return nil
}
