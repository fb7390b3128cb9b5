package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	MimeImage = "image/"
)

// TimezoneHeader 客户端上报本地时区（IANA 名称），用于按本地自然日计算 streak
const TimezoneHeader = "X-Timezone"

// MaxAvatarSize 头像大小上限
const MaxAvatarSize = 2 << 20
