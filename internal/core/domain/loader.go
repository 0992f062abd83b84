package domain

// Loader identifies the mod/plugin runtime a synced server is running,
// written into the remote version manifest as MC_TYPE.
type Loader string

const (
	LoaderVanilla  Loader = "VANILLA"
	LoaderForge    Loader = "FORGE"
	LoaderNeoForge Loader = "NEOFORGE"
	LoaderFabric   Loader = "FABRIC"
	LoaderQuilt    Loader = "QUILT"
	LoaderPaper    Loader = "PAPER"
	LoaderPurpur   Loader = "PURPUR"
)

// IsValid reports whether l is a known loader tag.
func (l Loader) IsValid() bool {
	switch l {
	case LoaderVanilla, LoaderForge, LoaderNeoForge, LoaderFabric, LoaderQuilt, LoaderPaper, LoaderPurpur:
		return true
	default:
		return false
	}
}

// VersionEnvVar returns the loader-specific version variable name the
// version manifest writes alongside MC_VERSION/MC_TYPE, or "" for
// loaders that carry no separate loader version (vanilla and the
// server-software-only loaders).
func (l Loader) VersionEnvVar() string {
	switch l {
	case LoaderForge:
		return "FORGE_VERSION"
	case LoaderNeoForge:
		return "NEOFORGE_VERSION"
	case LoaderFabric:
		return "FABRIC_LOADER_VERSION"
	case LoaderQuilt:
		return "QUILT_LOADER_VERSION"
	default:
		return ""
	}
}
