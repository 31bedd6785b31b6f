package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/donutnomad/repogen/aotgen"
	"github.com/donutnomad/repogen/plugin"
	"github.com/samber/lo"
)

func init() {
	// 集中注册所有生成器
	plugin.MustRegister(aotgen.NewRepositoryGenerator())
}

var (
	verbose  = flag.Bool("v", false, "详细输出")
	help     = flag.Bool("h", false, "显示帮助信息")
	output   = flag.String("output", "$FILE_repo.go", "默认输出路径（支持模板变量 $FILE, $PACKAGE）")
	noOutput = flag.Bool("no-output", false, "禁用默认输出（每个生成器输出到独立文件）")
	async    = flag.Bool("async", true, "异步执行生成器（默认 true）")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}

	args := flag.Args()

	// 默认命令是 gen
	if len(args) == 0 {
		runGen([]string{"./..."})
		return
	}

	// 检查是否是子命令
	cmd := args[0]
	switch cmd {
	case "gen":
		runGen(args[1:])
	case "dev":
		runDev(args[1:])
	case "report":
		runReport(args[1:])
	default:
		// 不是子命令，当作路径参数处理，执行 gen
		runGen(args)
	}
}

func runGen(args []string) {
	// 获取扫描路径
	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	// 检查是否有已注册的生成器
	registry := plugin.Global()
	if len(registry.Generators()) == 0 {
		fmt.Fprintln(os.Stderr, "错误: 没有已注册的生成器")
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("已注册 %d 个生成器:\n", len(registry.Generators()))
		for _, gen := range registry.Generators() {
			anns := lo.Map(gen.Annotations(), func(item string, index int) string {
				return "@" + item
			})
			fmt.Printf("  - %s (%s)\n", gen.Name(), strings.Join(anns, ","))
		}
		fmt.Println()
	}

	// 运行代码生成
	ctx := context.Background()

	// 确定输出路径：-no-output 时传空字符串，否则使用 -output 的值
	outputPath := *output
	if *noOutput {
		outputPath = ""
	}

	opts := &plugin.RunOptions{
		Registry: registry,
		Patterns: patterns,
		Verbose:  *verbose,
		Output:   outputPath,
		Async:    *async,
	}

	stats, err := plugin.RunWithOptionsAndStats(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}

	// 输出统计信息
	if stats != nil && (stats.FileCount > 0 || *verbose) {
		fmt.Printf("\n统计: 扫描 %d 个目标, 生成 %d 个文件\n", stats.TargetCount, stats.FileCount)
		fmt.Printf("耗时: 扫描 %v, 生成 %v, 总计 %v\n", stats.ScanDuration, stats.GenerateDuration, stats.TotalDuration)
	}
}

func runReport(args []string) {
	dirs := args
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	if err := aotgen.WriteReport(os.Stdout, dirs); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, `repogen - 仓储接口代码生成工具

用法:
  repogen [选项] [路径...]
  repogen gen [选项] [路径...]
  repogen dev [选项] [路径...]
  repogen report [路径...]

命令:
  gen      执行代码生成（默认）
  dev      启动开发模式，监听文件变动自动生成
  report   汇总已生成的 JSON 清单并输出 Markdown 报告

路径:
  支持 Go 包路径模式，如:
    ./...          递归扫描当前目录及子目录（默认）
    ./pkg/...      递归扫描指定目录
    ./models/...   递归扫描 models 目录

选项:
`)
	flag.PrintDefaults()

	// 动态生成注解帮助信息
	registry := plugin.Global()
	if len(registry.Generators()) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "\n支持的注解:\n")
		_, _ = fmt.Fprint(os.Stderr, plugin.FormatHelpText(registry))
	}

	_, _ = fmt.Fprintf(os.Stderr, `模板变量:
  $FILE     - 源文件名（不含 .go 后缀）
  $PACKAGE  - 包名

示例:
  repogen                                   扫描当前目录（默认 ./...）
  repogen ./...                             递归扫描当前目录
  repogen -v ./repos/...                    详细模式扫描 repos 目录
  repogen -output $FILE_repo ./...          指定输出文件名
  repogen dev ./...                         开发模式，监听文件变动
  repogen report ./repos                    输出仓储清单报告
`)
}
