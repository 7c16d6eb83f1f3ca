package misc

const (
	// FormatV1 is the legacy PBKDF2 + AES-256-GCM layout.
	FormatV1 byte = 1
	// FormatV2 is the legacy PBKDF2 + ChaCha20-Poly1305 layout.
	FormatV2 byte = 2
	// FormatV3 is the Argon2id + XChaCha20-Poly1305 layout.
	FormatV3 byte = 3

	// CurrentFormat defines the on-disk format written by Sync
	CurrentFormat = FormatV3

	// ArgonTime Key derivation parameters
	ArgonTime    uint32 = 4
	ArgonMemory  uint32 = 128 * 1024
	ArgonThreads uint8  = 4
	ArgonKeyLen  uint32 = 32
	SaltSize            = 32

	// PBKDF2 iteration counts of the legacy formats
	PBKDF2IterV1 = 20000
	PBKDF2IterV2 = 100000
	PBKDF2KeyLen = 32

	// DefaultFileName is the store file created in the user's home directory
	DefaultFileName = ".passwords.rooster"
	// FileEnvVar overrides the store location
	FileEnvVar = "ROOSTER_FILE"

	// DefaultPasswordLength is used by generate and regenerate
	DefaultPasswordLength = 32
)
