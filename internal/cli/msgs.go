package cli

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort    = "Resolve and sync game content packs"
	MsgResolveShort = "Resolve a project and its required dependencies"
	MsgSyncShort    = "Bring an instance in line with a manifest"
	MsgStateShort   = "Show what the last sync recorded for an instance"
	MsgVersionShort = "Print version information"

	MsgCompletionShort = "Generate shell completion script"
	MsgManShort        = "Generate the man page"

	// Status messages
	MsgManifestWritten = "Wrote manifest with %d files to %s\n"
	MsgDryRunNotice    = "\nDRY RUN MODE - No changes were made"
	MsgSyncCancelled   = "Sync of %s was cancelled; the instance was left untouched\n"
)

// Long messages
const (
	MsgRootLong = `modsync resolves a content project with its transitive required
dependencies against a target game version and loader, and synchronizes
instance directories against a declarative manifest: only changed files are
downloaded, stale tracked files are deleted, and every change is staged and
verified before the live tree is touched.`

	MsgResolveLong = `Resolve walks the required dependency graph of a project breadth first,
picking the first compatible version of every project. Projects that cannot
be resolved are reported as warnings and skipped.

With --out the resolution is written as a manifest file (JSON, YAML or TOML,
chosen by extension) that "modsync sync" can consume.`

	MsgSyncLong = `Sync downloads the files of the manifest that are missing or changed,
deletes tracked files the manifest no longer lists, and expands the override
archive. Nothing in the instance changes until all downloads are verified.

Press Ctrl-C to cancel; a cancelled sync leaves the instance as it was.`
)

// Examples
const (
	MsgResolveExample = `  # Resolve sodium for Minecraft 1.20.1 on fabric
  modsync resolve sodium --game-version 1.20.1 --loader fabric

  # Skip projects already installed and pin a version
  modsync resolve my-pack --game-version 1.20.1 --loader fabric \
      --installed P7dR8mSH --pin AANobbMI=OihdIimA --out pack.json`

	MsgSyncExample = `  # Sync an instance
  modsync sync survival --manifest pack.json

  # Preview what would change
  modsync sync survival --manifest pack.json --dry-run`
)
