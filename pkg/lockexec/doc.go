// Package lockexec 只在持有某个命名分布式锁期间运行一段闭包，做法与
// pkg/distributed/xcron 的 job wrapper 一致：获取锁、施加最小/最大持锁
// 时间窗口、通过独立超时 context 保证释放一定会执行、在每个边界把
// panic 转换为 error 而不是让调用方崩溃。
//
// # 设计理念
//
// 与按定时器调度任务的 xcron 不同，lockexec 由已经自行决定了执行时机的
// 调用方直接调用；它的存在是为了让 HTTP handler、消息消费者、一次性
// 脚本这类临时调用点，获得和 xcron 的调度任务一样的"锁范围内执行"契约，
// 而不必实现 cron.Job 或注册一个调度计划。
package lockexec
