package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xrequest/pkg/config/xsettings"
	"github.com/omeyang/xrequest/pkg/observability/xsteptrace"
)

func createRenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Aliases:   []string{"r"},
		Usage:     "以缩进树的形式打印持久化的 TraceLog",
		ArgsUsage: "<file.json>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "打印调试行与原始 HTTP 报文首行",
			},
			&cli.BoolFlag{
				Name:    "failed",
				Aliases: []string{"f"},
				Usage:   "只打印异常步骤及其祖先",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return &usageError{msg: "render 需要且只需要一个文件参数"}
			}
			tl, err := readTraceLog(cmd.Args().First())
			if err != nil {
				return err
			}
			return renderTrace(cmd.Root().Writer, tl, renderOptions{
				debug:      cmd.Bool("debug"),
				failedOnly: cmd.Bool("failed"),
			})
		},
	}
}

func createCheckConfigCommand() *cli.Command {
	return &cli.Command{
		Name:      "check-config",
		Aliases:   []string{"c"},
		Usage:     "加载并校验配置文件",
		ArgsUsage: "<file>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return &usageError{msg: "check-config 需要且只需要一个文件参数"}
			}
			return checkConfig(cmd, cmd.Args().First())
		},
	}
}

func readTraceLog(path string) (*xsteptrace.TraceLog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // 路径来自命令行参数
	if err != nil {
		return nil, err
	}
	var tl xsteptrace.TraceLog
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("解析 %s: %w", path, err)
	}
	return &tl, nil
}

// checkConfig 每个校验问题单独一行输出
func checkConfig(cmd *cli.Command, path string) error {
	s, err := xsettings.Load(path)
	if err == nil {
		fmt.Fprintf(cmd.Root().Writer, "%s: ok (debug_trace_id=%q, default_culture=%q)\n",
			path, s.DebugTraceID, s.DefaultCulture)
		return nil
	}
	if !errors.Is(err, xsettings.ErrInvalidSettings) {
		return err
	}

	w := cmd.Root().ErrWriter
	problems := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		problems = joined.Unwrap()
	}
	fmt.Fprintf(w, "%s: %d problem(s)\n", path, len(problems))
	for _, p := range problems {
		fmt.Fprintf(w, "  - %v\n", p)
	}
	return &exitError{code: 1}
}
