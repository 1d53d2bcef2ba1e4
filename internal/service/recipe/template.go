package recipe

import (
	"strings"
	"text/template"

	"github.com/okuznetsov/foldpack/internal/domain/platform"
)

// recipeTemplate is the multi-stage container build recipe. The fetch stage
// selects the per-architecture bootstrap binary and verifies its digest, the
// runtime stage materializes the pinned pipeline environment on the GPU base
// image. The architecture table is the same one the fetcher resolves against,
// so binaries and recipe cannot drift apart.
const recipeTemplate = `# syntax=docker/dockerfile:1
# Generated by foldpack-recipe. Edit the settings file, not this recipe.

ARG BASE_IMAGE={{ .BaseImage }}

FROM docker.io/library/debian:bookworm-slim AS fetch

ARG TARGETARCH

RUN apt-get update \
 && apt-get install -y --no-install-recommends ca-certificates curl \
 && rm -rf /var/lib/apt/lists/*

RUN set -eu; \
    case "${TARGETARCH}" in \
{{- range .Profiles }}
    {{ .Arch }}) url="{{ .URL }}"; sha256="{{ .SHA256 }}" ;; \
{{- end }}
    "") echo "TARGETARCH must be set explicitly" >&2; exit 1 ;; \
    *) echo "unsupported architecture: ${TARGETARCH} (supported: {{ .Supported }})" >&2; exit 1 ;; \
    esac; \
    curl -fsSL "$url" -o /tmp/micromamba; \
    echo "$sha256  /tmp/micromamba" | sha256sum -c -; \
    install -m 0755 /tmp/micromamba /usr/local/bin/micromamba

FROM ${BASE_IMAGE}

COPY --from=fetch /usr/local/bin/micromamba /usr/local/bin/micromamba

ENV MAMBA_ROOT_PREFIX=/opt/conda
ENV PATH=/opt/conda/bin:${PATH}

RUN micromamba create -y -p /opt/conda \
    -c conda-forge -c bioconda \
    python=3.10 \
    colabfold={{ .ColabfoldVersion }} \
    "jaxlib=*=*cuda*" jax \
 && micromamba clean -a -y

ENV MPLBACKEND=Agg
ENV COLABFOLD_DB=/tmp/cache

CMD ["colabfold_batch", "--help"]
`

// templateData carries everything the recipe template needs.
type templateData struct {
	BaseImage        string
	ColabfoldVersion string
	Profiles         []platform.Profile
	Supported        string
}

// render executes the recipe template for the provided table and settings.
func render(table *platform.Table, baseImage, colabfoldVersion string) (string, error) {
	tmpl, err := template.New("recipe").Parse(recipeTemplate)
	if err != nil {
		return "", err
	}

	data := templateData{
		BaseImage:        baseImage,
		ColabfoldVersion: colabfoldVersion,
		Profiles:         table.Profiles(),
		Supported:        strings.Join(table.Supported(), ", "),
	}

	var sb strings.Builder
	if err = tmpl.Execute(&sb, data); err != nil {
		return "", err
	}

	return sb.String(), nil
}
