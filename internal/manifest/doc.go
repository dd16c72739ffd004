// Package manifest defines the YAML recipe format for image builds.
//
// A recipe is an ordered list of stages. Each stage starts from a pinned
// base image archive and executes steps: shell commands, file copies
// (including cross-stage copies from earlier named stages), and best-effort
// prunes. Transient stages exist only to produce artifacts; the single
// non-transient stage is exported as the final image, carrying the declared
// port, entrypoint, and accumulated environment.
//
// Recipes are validated at load time so structural errors surface before
// any container is started.
//
// Example recipe:
//
//	stages:
//	  - name: builder
//	    from: bases/python-3.11-slim.tar
//	    transient: true
//	    steps:
//	      - run: python -m venv /opt/venv
//	      - env: {PATH: /opt/venv/bin:/usr/local/bin:/usr/bin:/bin}
//	      - run: pip install --no-cache-dir -r requirements.txt
//	      - prune: ["__pycache__", "tests"]
//	  - from: bases/python-3.11-slim.tar
//	    expose: 8501
//	    entrypoint: [streamlit, run, app/main.py, --server.port=8501, --server.address=0.0.0.0]
//	    steps:
//	      - copy: builder:/opt/venv /opt/venv
//	      - copy: app /app/app
package manifest
