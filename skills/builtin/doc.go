/*
Package builtin 提供四个内置技能：深度提问、故事讲述、情感支持与
深度分析，以及三个预置角色（哈利·波特、苏格拉底、阿尔伯特·爱因斯坦）
的技能配置清单。

技能通过 RegisterAll 的显式清单注册，不做运行时扫描发现。回应模板
按输入的 FNV 哈希确定性选取，同一输入总是得到同一模板。
*/
package builtin
