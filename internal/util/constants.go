package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 响应中的错误类别
const (
	KindValidation  = "validation"
	KindCredentials = "credentials"
	KindNotFound    = "not_found"
	KindInvalid     = "invalid_argument"
	KindUnanswered  = "unanswered"
	KindSubmitted   = "submitted"
	KindServer      = "server"
	KindInternal    = "internal"
)

const (
	TokenCookieName = "token"
	ContextIdentity = "identity"

	// MaxMaterialSize 单次上传资料总大小
	MaxMaterialSize = 50 << 20

	MaterialPrefix = "materials"
)
