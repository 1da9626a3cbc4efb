package xsettings

import "errors"

var (
	// ErrEmptyPath 配置文件路径为空
	ErrEmptyPath = errors.New("xsettings: empty config path")

	// ErrUnsupportedFormat 不支持的配置格式
	ErrUnsupportedFormat = errors.New("xsettings: unsupported config format")

	// ErrLoadFailed 读取配置文件失败
	ErrLoadFailed = errors.New("xsettings: failed to load config")

	// ErrParseFailed 解析配置内容失败
	ErrParseFailed = errors.New("xsettings: failed to parse config")

	// ErrInvalidSettings 配置校验未通过
	ErrInvalidSettings = errors.New("xsettings: invalid settings")
)
