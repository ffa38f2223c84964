package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// exitError 携带进程退出码；err 为空表示已经输出过，无需再打印。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func fail(err error) error { return &exitError{code: 1, err: err} }

// silent 表示结果已经写出（例如部分条目失败），只需要非零退出码。
func silent(code int) error { return &exitError{code: code} }

// execute 运行 CLI 并返回退出码：0 成功；1 运行失败/部分失败；2 参数错误。
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	return run(newApp(cwd, stdin, stdout, stderr), args)
}

func run(a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				fmt.Fprintf(a.stderr, "错误：%v\n", ee.err)
			}
			return ee.code
		}
		// cobra 自身的参数/命令错误。
		fmt.Fprintf(a.stderr, "参数错误：%v\n\n", err)
		fmt.Fprint(a.stderr, root.UsageString())
		return 2
	}
	return 0
}
