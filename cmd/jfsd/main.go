package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/tchajed/goose/machine/disk"
	"github.com/zeldovich/go-rpcgen/rfc1057"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-jfs/fs"
	"github.com/mit-pdos/go-jfs/fsrpc"
	"github.com/mit-pdos/go-jfs/serve"
	"github.com/mit-pdos/go-jfs/util/diskimg"
	"github.com/mit-pdos/go-jfs/util/timed_disk"
)

func main() {
	cfgFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	conf, err := LoadConfig(cfgFile)
	if err != nil {
		log.Fatal(err)
	}

	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	flag.Uint64Var(&conf.SizeMB, "size", conf.SizeMB, "size of a new file system (in MB)")
	flag.StringVar(&conf.Disk, "disk", conf.Disk, "disk image (empty for MemDisk)")
	flag.IntVar(&conf.Port, "port", conf.Port, "TCP port to listen on (0 picks one)")
	flag.BoolVar(&conf.Pmap, "pmap", conf.Pmap, "register with the local portmapper")
	flag.StringVar(&conf.Commit, "commit", conf.Commit, "journal commit mode (sync or deferred)")
	flag.BoolVar(&conf.Stats, "stats", conf.Stats, "dump stats to stderr at end")
	flag.Uint64Var(&conf.Debug, "debug", conf.Debug, "debug level (higher is more verbose)")
	flag.Parse()

	if err := conf.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	util.Debug = conf.Debug
	diskfile, sizeMegabytes, port := conf.Disk, conf.SizeMB, conf.Port
	usePmap, dumpStats := conf.Pmap, conf.Stats

	cfg := fs.DefaultConfig()
	mode, ok := fs.ParseCommitMode(conf.Commit)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown commit mode %q\n", conf.Commit)
		os.Exit(2)
	}
	cfg.Commit = mode

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	img, err := diskimg.Open(diskfile, sizeMegabytes*1024*1024/disk.BlockSize)
	if err != nil {
		log.Fatal(err)
	}
	defer img.Close()
	var d disk.Disk = img
	if dumpStats {
		d = timed_disk.New(d)
	}
	if img.Fresh() {
		log.Printf("formatting %d blocks\n", d.Size())
		fs.Mkfs(d)
	}
	fsys := fs.Mount(d, cfg)
	srv := serve.MkServer(fsys)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Fatal(err)
	}
	lport := uint32(listener.Addr().(*net.TCPAddr).Port)
	log.Printf("listening on port %d\n", lport)

	if usePmap {
		fsrpc.PmapSetUnset(0, false)
		if err := fsrpc.PmapSetUnset(lport, true); err != nil {
			fmt.Fprintf(os.Stderr, "Could not register - is rpcbind service running?\n")
			fmt.Fprintf(os.Stderr, "%v\n", err.Error())
			os.Exit(1)
		}
		defer fsrpc.PmapSetUnset(lport, false)
	}

	rpc := rfc1057.MakeServer()
	rpc.RegisterMany(fsrpc.Regs(srv))

	writeStats := func() {
		srv.WriteOpStats(os.Stderr)
		d.(*timed_disk.Disk).WriteStats(os.Stderr)
	}

	interruptSig := make(chan os.Signal, 1)
	shutdown := false
	signal.Notify(interruptSig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interruptSig
		shutdown = true
		listener.Close()
	}()

	if dumpStats {
		statSig := make(chan os.Signal, 1)
		signal.Notify(statSig, syscall.SIGUSR1)
		go func() {
			for {
				<-statSig
				writeStats()
				srv.ResetOpStats()
				d.(*timed_disk.Disk).ResetStats()
			}
		}()
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) && shutdown {
				util.DPrintf(1, "Shutting down server")
				break
			}
			fmt.Printf("accept: %v\n", err)
			break
		}
		go rpc.Run(conn)
	}

	if _, err := srv.Call(ctx, &serve.SyncReq{}); err != nil {
		log.Printf("final sync: %v\n", err)
	}
	cancel()
	<-done
	if dumpStats {
		writeStats()
	}
}
