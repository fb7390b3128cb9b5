package middleware

import (
	"codegrow_backend/internal/util"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const locationContextKey = "location"

// Timezone 解析 X-Timezone 头（IANA 名称），缺省使用服务端配置的时区。
// 无法识别的时区直接返回 400，避免按错误的自然日计算 streak。
func Timezone(fallback *time.Location) gin.HandlerFunc {
	if fallback == nil {
		fallback = time.Local
	}
	return func(c *gin.Context) {
		loc := fallback
		if name := strings.TrimSpace(c.GetHeader(util.TimezoneHeader)); name != "" {
			parsed, err := time.LoadLocation(name)
			if err != nil {
				util.BadRequest(c, util.ErrInvalidTimezone.Error()+": "+name)
				c.Abort()
				return
			}
			loc = parsed
		}
		c.Set(locationContextKey, loc)
		c.Next()
	}
}

// LocationFromContext 未经过 Timezone 中间件时返回 time.Local
func LocationFromContext(c *gin.Context) *time.Location {
	if v, ok := c.Get(locationContextKey); ok {
		if loc, ok := v.(*time.Location); ok {
			return loc
		}
	}
	return time.Local
}
