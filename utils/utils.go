package utils

import (
	"fmt"
	"math/rand"
	"reflect"
	"runtime"
	"runtime/debug"
	"sort"
)

func Try(function func(), handler func(interface{}, string)) {
	defer func() {
		err := recover()
		if err != nil {
			handler(err, "Traceback: \n"+string(debug.Stack()))
		}
	}()
	function()
}

func String(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

func GetFunctionName(i interface{}) string {
	return runtime.FuncForPC(reflect.ValueOf(i).Pointer()).Name()
}

// WeightedChoice 按权重随机抽取一个key，权重总和不要求为1；weights为空时返回空字符串
func WeightedChoice(r *rand.Rand, weights map[string]float64) string {
	var total float64
	keys := make([]string, 0, len(weights))
	for k, w := range weights {
		if w > 0 {
			keys = append(keys, k)
			total += w
		}
	}
	if len(keys) == 0 {
		return ""
	}
	// map遍历顺序不定，排序保证同一seed下结果可重现
	sort.Strings(keys)
	n := r.Float64() * total
	for _, k := range keys {
		n -= weights[k]
		if n < 0 {
			return k
		}
	}
	return keys[len(keys)-1]
}
