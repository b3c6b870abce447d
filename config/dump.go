package config

import (
	"io"
	"net/url"

	"gopkg.in/yaml.v3"
)

const redacted = "REDACTED"

// Dump 以 YAML 输出生效配置，密码类字段被替换。
func Dump(w io.Writer, cfg *Config) error {
	c := *cfg
	c.Source.Mongo.URI = redactURI(c.Source.Mongo.URI)
	c.Sink.Mongo.URI = redactURI(c.Sink.Mongo.URI)
	if c.Sink.Redis.Password != "" {
		c.Sink.Redis.Password = redacted
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&c); err != nil {
		return err
	}
	return enc.Close()
}

// redactURI 隐藏连接串中的密码；无法解析时整体隐藏。
func redactURI(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), redacted)
	}
	return u.String()
}
