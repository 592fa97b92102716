// Package server runs the SSH game server, the HTTPS admin surface and the
// operator control socket.
package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/pkg/errors"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/game"
	"github.com/zond/wizmud/pemfile"
	"github.com/zond/wizmud/storage"
	"github.com/zond/wizmud/webadmin"
	"go.uber.org/zap"

	gossh "golang.org/x/crypto/ssh"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	config Config
	log    *zap.SugaredLogger
}

func New(config Config, log *zap.SugaredLogger) *Server {
	return &Server{
		config: config,
		log:    log,
	}
}

func (s *Server) keys() pemfile.KeyParams {
	return pemfile.KeyParams{
		Hostname:      s.config.Hostname,
		KeyPath:       s.config.path("private.pem"),
		SSHPubKeyPath: s.config.path("public.pub"),
		HTTPSCertPath: s.config.path("cert.pem"),
	}
}

// Start serves until ctx is cancelled or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.config.Dir, 0700); err != nil {
		return wizmud.WithStack(err)
	}
	keys := s.keys()
	if generated, err := keys.Ensure(); err != nil {
		return err
	} else if generated {
		s.log.Infow("generated server keys", "dir", s.config.Dir)
	}
	pemBytes, signer, err := keys.HostKey()
	if err != nil {
		return err
	}

	store, err := storage.New(ctx, s.config.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	g := game.New(ctx, store, s.log)

	sshListener, err := net.Listen("tcp", s.config.SSHAddr)
	if err != nil {
		return wizmud.WithStack(err)
	}
	control, err := listenControl(s.config.ControlSocketPath())
	if err != nil {
		sshListener.Close()
		return err
	}
	return s.serve(ctx, g, store, sshListener, control, pemBytes, signer, keys)
}

func (s *Server) serve(ctx context.Context, g *game.Game, store *storage.Storage, sshListener net.Listener, control net.Listener, pemBytes []byte, signer gossh.Signer, keys pemfile.KeyParams) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errs := make(chan error, 3)

	sshServer := &ssh.Server{
		Handler: g.HandleSession,
	}
	if err := sshServer.SetOption(ssh.HostKeyPEM(pemBytes)); err != nil {
		return wizmud.WithStack(err)
	}
	s.log.Infow("serving SSH", "addr", sshListener.Addr().String(), "fingerprint", gossh.FingerprintSHA256(signer.PublicKey()))
	go func() {
		errs <- wizmud.WithStack(sshServer.Serve(sshListener))
	}()

	var httpServer *http.Server
	if s.config.HTTPAddr != "" {
		httpServer = &http.Server{
			Addr:              s.config.HTTPAddr,
			Handler:           webadmin.New(store, s.log).Router(wizmud.DigestAuthRealm),
			ReadHeaderTimeout: 10 * time.Second,
		}
		s.log.Infow("serving HTTPS admin", "addr", s.config.HTTPAddr)
		go func() {
			errs <- wizmud.WithStack(httpServer.ListenAndServeTLS(keys.HTTPSCertPath, keys.KeyPath))
		}()
	}

	c := &controller{game: g, log: s.log}
	s.log.Infow("serving control socket", "path", control.Addr().String())
	go func() {
		errs <- c.serve(ctx, control)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errs:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	control.Close()
	if httpServer != nil {
		if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
			s.log.Warnw("shutting down HTTPS", "error", serr)
		}
	}
	if serr := sshServer.Shutdown(shutdownCtx); serr != nil && !errors.Is(serr, context.DeadlineExceeded) {
		s.log.Warnw("shutting down SSH", "error", serr)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, ssh.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
