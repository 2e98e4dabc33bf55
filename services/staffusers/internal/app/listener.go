package app

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// listenFDsStart - первый унаследованный дескриптор (протокол sd_listen_fds).
const listenFDsStart = 3

// Listen возвращает сокет HTTP сервера.
// Если процессу передан ровно один сокет (LISTEN_FDS=1, LISTEN_PID совпадает
// с текущим pid), используется он. Иначе сокет открывается на addr.
func Listen(addr string) (net.Listener, error) {
	return listen(os.Getenv, os.Getpid(), addr)
}

func listen(getenv func(string) string, pid int, addr string) (net.Listener, error) {
	if inherited(getenv, pid) {
		f := os.NewFile(uintptr(listenFDsStart), "listen_fd_3")
		if f == nil {
			return nil, fmt.Errorf("унаследованный дескриптор %d недоступен", listenFDsStart)
		}
		defer func() { _ = f.Close() }()

		ln, err := net.FileListener(f)
		if err != nil {
			return nil, fmt.Errorf("унаследованный сокет: %w", err)
		}
		return ln, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func inherited(getenv func(string) string, pid int) bool {
	if getenv("LISTEN_FDS") != "1" {
		return false
	}
	listenPID, err := strconv.Atoi(getenv("LISTEN_PID"))
	return err == nil && listenPID == pid
}
