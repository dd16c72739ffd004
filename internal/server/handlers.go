package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/emberhq/kilnd/internal"
	"github.com/emberhq/kilnd/internal/audit"
	"github.com/emberhq/kilnd/internal/build"
	"github.com/emberhq/kilnd/internal/manifest"
	"github.com/emberhq/kilnd/internal/paths"
	"github.com/emberhq/kilnd/internal/protocol"
)

// Handles a build command.
//
// Loads and validates the recipe, executes it against the container runtime,
// and records the outcome in the ledger. When verification is requested the
// exported archive is audited before the response is written.
func (s *Server) handleBuild(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.BuildRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	recipe, recipeDigest, err := loadRecipe(req.RecipePath)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	resource := req.Resource
	if resource == "" {
		resource = resourceName(req.RecipePath)
	}

	buildID, err := s.ledger.Begin(ctx, resource, req.RecipePath, recipeDigest)
	if err != nil {
		slog.Warn("failed to record build start", "error", err)
	}

	result, err := build.Run(ctx, s.runtime, build.Options{
		Recipe:    recipe,
		Resource:  resource,
		Output:    req.Output,
		Root:      req.Root,
		Platforms: req.Platforms,
		LockPath:  paths.BuildLock(),
	})
	if err != nil {
		s.recordFailure(buildID, err.Error())
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	res := &protocol.BuildResult{Output: result.Output}

	// Multi-platform builds export one archive per platform; a single digest
	// is only meaningful for the single-platform layout.
	if len(result.Archives) == 1 {
		if dgst, err := archiveDigest(result.Archives[0]); err == nil {
			res.ImageDigest = dgst
		} else {
			slog.Warn("failed to digest exported archive", "archive", result.Archives[0], "error", err)
		}
	}

	// The build itself succeeded; record it before verification runs so a
	// failing audit never marks a completed build failed.
	if buildID != uuid.Nil {
		if err := s.ledger.Succeed(context.WithoutCancel(ctx), buildID, res.ImageDigest); err != nil {
			slog.Warn("failed to record build result", "error", err)
		}
	}

	s.mu.Lock()
	s.builds++
	s.mu.Unlock()

	if req.Verify {
		violations, err := verifyArchives(result.Archives, recipe)
		if err != nil {
			s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
			return
		}
		res.Violations = violations
	}

	s.respond(conn, protocol.CmdOK, res)
}

// Audits each exported archive against the recipe and merges the violations.
func verifyArchives(archives []string, recipe *manifest.Recipe) ([]string, error) {
	var violations []string
	for _, archive := range archives {
		report, err := audit.Verify(archive, recipe)
		if err != nil {
			return nil, err
		}
		violations = append(violations, report.Violations...)
	}
	return violations, nil
}

// Handles a verify command.
//
// Audits an already exported archive against its recipe without running a
// build.
func (s *Server) handleVerify(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.VerifyRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	recipe, _, err := loadRecipe(req.RecipePath)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	report, err := audit.Verify(req.Archive, recipe)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.VerifyResult{Violations: report.Violations})
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	builds := s.builds
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running: true,
		Version: internal.VersionString(),
		Pid:     os.Getpid(),
		Uptime:  uptime.String(),
		Builds:  builds,
	})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}

// Records a build failure without tying it to the connection context, which
// may already be cancelled.
func (s *Server) recordFailure(buildID uuid.UUID, message string) {
	if buildID == uuid.Nil {
		return
	}
	if err := s.ledger.Fail(context.Background(), buildID, message); err != nil {
		slog.Warn("failed to record build failure", "error", err)
	}
}

// Reads, parses, and validates a recipe file, returning the recipe and the
// digest of its raw bytes.
func loadRecipe(path string) (*manifest.Recipe, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	recipe, err := manifest.Parse(data)
	if err != nil {
		return nil, "", err
	}

	return recipe, digest.FromBytes(data).String(), nil
}

// Derives a resource name from the recipe file name.
func resourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Computes the digest of an exported archive. Multi-platform builds write
// per-platform subdirectories; in that case the top-level archive does not
// exist and the digest is omitted from the result.
func archiveDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	dgst, err := digest.FromReader(f)
	if err != nil {
		return "", err
	}
	return dgst.String(), nil
}
