// xtracectl 查看持久化的调用树并校验 xrequest 配置文件。
//
// 用法:
//
//	xtracectl <命令> [命令参数]
//
// 命令:
//
//	render <file.json>      以缩进树的形式打印 TraceLog
//	  --debug, -d           同时打印调试行与原始 HTTP 报文首行
//	  --failed, -f          只打印带异常 key 的步骤及其祖先
//	check-config <file>     加载并校验配置文件
//
// 退出码:
//
//	0: 成功
//	1: 文件无法读取、解析失败或配置校验未通过
//	2: 参数错误
//
// 示例:
//
//	xtracectl render trace.json
//	xtracectl render -d trace.json
//	xtracectl check-config /etc/app/xrequest.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// usageError 参数错误，退出码 2
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// exitError 命令已完成输出，只需设置退出码
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xtracectl",
		Usage:     "查看调用树与校验 xrequest 配置",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			createRenderCommand(),
			createCheckConfigCommand(),
		},
		// 退出码由 run 统一映射，不让 urfave/cli 直接 os.Exit
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := createApp(stdout, stderr).Run(ctx, args)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) || isCLIUsageError(err) {
		fmt.Fprintf(stderr, "参数错误: %v\n", err)
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

// isCLIUsageError 识别 urfave/cli 自身产生的参数错误
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"flag provided but not defined", "No help topic for", "invalid value"} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}
