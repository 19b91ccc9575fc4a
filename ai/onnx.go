package ai

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	onnxInitialized bool
	onnxInitMu      sync.Mutex
)

// initONNXRuntime инициализирует ONNX Runtime (общий для всех сессий)
// Путь к библиотеке берётся из ONNXRUNTIME_SHARED_LIBRARY_PATH или
// ищется рядом с исполняемым файлом
func initONNXRuntime() error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxInitialized {
		return nil
	}

	libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")

	if libPath == "" {
		exeDir := filepath.Dir(os.Args[0])
		searchPaths := []string{
			filepath.Join(exeDir, "libonnxruntime.so"),
			filepath.Join(exeDir, "libonnxruntime.dylib"),
			"./libonnxruntime.so",
			"./libonnxruntime.dylib",
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				libPath = path
				break
			}
		}
	}

	if libPath != "" {
		log.Printf("Using ONNX Runtime library: %s", libPath)
		ort.SetSharedLibraryPath(libPath)
	} else {
		return fmt.Errorf("ONNX Runtime library not found (set ONNXRUNTIME_SHARED_LIBRARY_PATH)")
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return err
	}

	onnxInitialized = true
	log.Println("ONNX Runtime initialized successfully")
	return nil
}
